package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/internal/config"
)

var (
	flagOutput     string
	flagWorkers    int
	flagLanguages  string
	flagInclude    []string
	flagExclude    []string
	flagNoCache    bool
	flagCachePath  string
	flagTieBreak   string
	flagQueriesDir string
	flagProgress   bool
	flagLogLevel   string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project and write an LSIF dump",
	Long:  "Discovers source files, analyzes them in parallel with tree-sitter queries, resolves references across files and writes the LSIF graph as newline-delimited JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	f := indexCmd.Flags()
	f.StringVarP(&flagOutput, "output", "o", "", `dump file, or "-" for stdout (default dump.lsif)`)
	f.IntVar(&flagWorkers, "workers", 0, "analysis workers (default: one per CPU)")
	f.StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,typescript)")
	f.StringSliceVar(&flagInclude, "include", nil, "only index paths matching these globs")
	f.StringSliceVar(&flagExclude, "exclude", nil, "skip paths matching these globs")
	f.BoolVar(&flagNoCache, "no-cache", false, "disable the analysis cache")
	f.StringVar(&flagCachePath, "cache", "", "cache database path (default .arbor/cache.db under the project)")
	f.StringVar(&flagTieBreak, "tie-break", "", "Risor script choosing among ambiguous exports, or builtin:<name>")
	f.StringVar(&flagQueriesDir, "queries-dir", "", "load query programs from disk instead of embedded")
	f.BoolVar(&flagProgress, "progress", true, "show a progress bar on stderr")
	f.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadIndexConfig(cmd, targetDir)
	if err != nil {
		return err
	}
	log := cfg.Logger()

	opts := engineOptions(cfg, targetDir, log)
	var bar *progressBar
	if cfg.Progress {
		bar = newProgressBar(cmd.ErrOrStderr())
		opts = append(opts, arbor.WithProgress(bar.update))
	}

	engine, err := arbor.New(opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	out, err := openOutput(cmd, cfg.Output)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sum, err := engine.IndexDirectory(ctx, targetDir, arbor.DiscoverOptions{
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		MaxFileSize: cfg.MaxFileSize,
	}, out)
	bar.finish()
	if sum == nil {
		out.abort()
		return fmt.Errorf("indexing: %w", err)
	}
	if cerr := out.commit(); cerr != nil {
		return cerr
	}

	log.WithFields(logrus.Fields{
		"files":    sum.Files,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("index complete")

	// With the dump on stdout the summary must not interleave with it.
	sumOut := cmd.OutOrStdout()
	if cfg.Output == "-" {
		sumOut = cmd.ErrOrStderr()
	}
	if perr := outputSummary(sumOut, summaryToCLI(sum, out.name, time.Since(start))); perr != nil {
		return perr
	}
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	return nil
}

// loadIndexConfig applies explicitly set flags on top of the loaded config.
func loadIndexConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	cfg, err := config.Load(dir, flagConfig)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("output") {
		cfg.Output = flagOutput
	}
	if f.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if f.Changed("languages") {
		cfg.Languages = splitList(flagLanguages)
	}
	if f.Changed("include") {
		cfg.Include = flagInclude
	}
	if f.Changed("exclude") {
		cfg.Exclude = flagExclude
	}
	if f.Changed("no-cache") {
		cfg.Cache.Enabled = !flagNoCache
	}
	if f.Changed("cache") {
		cfg.Cache.Path = flagCachePath
	}
	if f.Changed("tie-break") {
		cfg.Resolve.TieBreakScript = flagTieBreak
	}
	if f.Changed("queries-dir") {
		cfg.Queries.Dir = flagQueriesDir
	}
	if f.Changed("progress") {
		cfg.Progress = flagProgress
	}
	if f.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func engineOptions(cfg *config.Config, root string, log *logrus.Logger) []arbor.Option {
	opts := []arbor.Option{
		arbor.WithLogger(log),
		arbor.WithWorkers(cfg.Workers),
		arbor.WithToolVersion(version),
	}
	if len(cfg.Languages) > 0 {
		opts = append(opts, arbor.WithLanguages(cfg.Languages...))
	}
	if cfg.Cache.Enabled {
		opts = append(opts, arbor.WithCache(cfg.CachePath(root)))
	}
	if s := cfg.Resolve.TieBreakScript; s != "" {
		if !strings.HasPrefix(s, arbor.BuiltinPolicyPrefix) {
			s = underRoot(root, s)
		}
		opts = append(opts, arbor.WithTieBreakScript(s))
	}
	if cfg.Queries.Dir != "" {
		opts = append(opts, arbor.WithQueriesDir(underRoot(root, cfg.Queries.Dir)))
	}
	return opts
}

func underRoot(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// output is the dump destination. File output goes to a temporary file
// that replaces the target only once the graph is complete.
type output struct {
	io.Writer
	name string
	tmp  *os.File
	dest string
}

func openOutput(cmd *cobra.Command, dest string) (*output, error) {
	if dest == "-" {
		return &output{Writer: cmd.OutOrStdout(), name: "-"}, nil
	}
	if dest == "" {
		dest = config.Default().Output
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".arbor-*.lsif")
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	return &output{Writer: tmp, name: dest, tmp: tmp, dest: dest}, nil
}

func (o *output) commit() error {
	if o.tmp == nil {
		return nil
	}
	if err := o.tmp.Close(); err != nil {
		os.Remove(o.tmp.Name())
		return fmt.Errorf("writing %s: %w", o.dest, err)
	}
	if err := os.Rename(o.tmp.Name(), o.dest); err != nil {
		os.Remove(o.tmp.Name())
		return fmt.Errorf("writing %s: %w", o.dest, err)
	}
	return nil
}

func (o *output) abort() {
	if o.tmp == nil {
		return
	}
	o.tmp.Close()
	os.Remove(o.tmp.Name())
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
