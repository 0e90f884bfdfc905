package arbor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jward/arbor/internal/analysis"
	"github.com/jward/arbor/internal/grammar"
	"github.com/jward/arbor/internal/lsif"
	"github.com/jward/arbor/internal/resolve"
	"github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/scripts"
)

// ToolName is reported in the metaData vertex.
const ToolName = "arbor"

// cacheVersion is bumped whenever the cached analysis shape changes.
const cacheVersion = "2"

// BuiltinPolicyPrefix selects a bundled tie-break script, e.g.
// "builtin:nearest".
const BuiltinPolicyPrefix = "builtin:"

// ProgressFunc is called once per analyzed or cached file. Calls are
// serialized.
type ProgressFunc func(done, total int, path string)

// fileAnalyzer is the per-file step run on the worker pool.
type fileAnalyzer interface {
	Analyze(src SourceFile) *FileAnalysis
}

// Engine runs the analyze, resolve and emit pipeline.
type Engine struct {
	registry *grammar.Registry
	analyzer fileAnalyzer
	resolver *resolve.Resolver
	store    *store.Store // nil when caching is off
	log      *logrus.Logger

	languages []string
	workers   int
	queriesFS fs.FS
	cachePath string
	tieBreak  string
	progress  ProgressFunc
	version   string
	queryHash string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts the Engine to the named languages.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = append(e.languages, languages...)
	}
}

// WithWorkers sets the analysis pool size. n <= 0 uses one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithCache enables the SQLite analysis cache at path.
func WithCache(path string) Option {
	return func(e *Engine) {
		e.cachePath = path
	}
}

// WithLogger sets the logger used for warnings and diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithQueriesFS loads query programs from fsys instead of the embedded set.
func WithQueriesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.queriesFS = fsys
	}
}

// WithQueriesDir loads query programs from a directory on disk.
func WithQueriesDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.queriesFS = os.DirFS(dir)
		}
	}
}

// WithTieBreakScript resolves ambiguous exports with a Risor script: a
// path on disk, or BuiltinPolicyPrefix followed by a bundled policy name.
func WithTieBreakScript(script string) Option {
	return func(e *Engine) {
		e.tieBreak = script
	}
}

// WithProgress registers a per-file progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithToolVersion sets the version reported in the metaData vertex. It is
// also part of the cache key.
func WithToolVersion(v string) Option {
	return func(e *Engine) {
		e.version = v
	}
}

// New loads and validates every query program, then opens the cache and
// tie-break script if configured. Query problems are returned as
// *ConfigError before any file is read.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{version: "dev"}
	e.log = logrus.StandardLogger()
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = goruntime.NumCPU()
	}

	var loadOpts []grammar.LoadOption
	if len(e.languages) > 0 {
		loadOpts = append(loadOpts, grammar.WithLanguages(e.languages...))
	}
	var err error
	if e.queriesFS != nil {
		e.registry, err = grammar.Load(e.queriesFS, loadOpts...)
	} else {
		e.registry, err = grammar.Default(loadOpts...)
	}
	if err != nil {
		return nil, err
	}
	e.queryHash = e.registry.Hash()
	e.analyzer = analysis.New(e.registry)

	resolveOpts := []resolve.Option{resolve.WithLogger(e.log)}
	if e.tieBreak != "" {
		p, err := e.scriptPolicy()
		if err != nil {
			e.registry.Close()
			return nil, fmt.Errorf("arbor: tie-break script: %w", err)
		}
		resolveOpts = append(resolveOpts, resolve.WithPolicy(p))
	}
	e.resolver = resolve.New(resolveOpts...)

	if e.cachePath != "" {
		if err := e.openCache(); err != nil {
			e.registry.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) scriptPolicy() (*runtime.ScriptPolicy, error) {
	if name, ok := strings.CutPrefix(e.tieBreak, BuiltinPolicyPrefix); ok {
		rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(e.log))
		return runtime.NewScriptPolicy(rt, scripts.PolicyPath(name))
	}
	dir, file := filepath.Split(e.tieBreak)
	rt := runtime.NewRuntime(dir, runtime.WithRuntimeLogger(e.log))
	return runtime.NewScriptPolicy(rt, file)
}

// openCache opens the store and drops every entry written by another tool
// version or query set.
func (e *Engine) openCache() error {
	if err := os.MkdirAll(filepath.Dir(e.cachePath), 0o755); err != nil {
		return fmt.Errorf("arbor: cache dir: %w", err)
	}
	s, err := store.NewStore(e.cachePath)
	if err != nil {
		return fmt.Errorf("arbor: open cache: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return fmt.Errorf("arbor: migrate cache: %w", err)
	}

	key := cacheVersion + "/" + e.version + "/" + e.queryHash
	stored, _, err := s.GetMeta("cache_key")
	if err != nil {
		s.Close()
		return fmt.Errorf("arbor: cache: %w", err)
	}
	if stored != key {
		if err := s.Purge(); err != nil {
			s.Close()
			return fmt.Errorf("arbor: cache: %w", err)
		}
		if err := s.SetMeta("cache_key", key); err != nil {
			s.Close()
			return fmt.Errorf("arbor: cache: %w", err)
		}
		e.log.WithField("cache", e.cachePath).Debug("cache reset")
	}
	e.store = s
	return nil
}

// Close releases the compiled queries and the cache.
func (e *Engine) Close() error {
	e.registry.Close()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Languages returns the enabled language tags.
func (e *Engine) Languages() []string {
	return e.registry.Languages()
}

// LanguageForFile reports the enabled language of path.
func (e *Engine) LanguageForFile(path string) (string, bool) {
	return e.registry.LanguageForFile(path)
}

// Resolve links the cross-file references of files in place.
func (e *Engine) Resolve(files []*FileAnalysis) ResolveStats {
	_, st := e.resolver.Resolve(files)
	return st
}

// Index analyzes files, resolves them against each other and writes the
// LSIF graph to w. root is the directory the SourceFile paths are relative
// to. ErrNoFilesParsed is returned alongside the summary when every file
// failed; the graph is still complete.
func (e *Engine) Index(ctx context.Context, root string, files []SourceFile, w io.Writer) (*Summary, error) {
	analyses, cached, err := e.Analyze(ctx, files)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Files: len(analyses), Cached: cached}
	for _, fa := range analyses {
		if fa.OK() {
			sum.Indexed++
			continue
		}
		sum.Failed++
		sum.Warnings = append(sum.Warnings, Warning{Path: fa.Path, Err: fa.Err})
		e.log.WithError(fa.Err).WithFields(logrus.Fields{
			"file":     fa.Path,
			"language": fa.Language,
		}).Warn("file skipped")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	sum.References = e.Resolve(analyses)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("arbor: root: %w", err)
	}
	project := lsif.Project{Root: absRoot, Tool: lsif.ToolInfo{Name: ToolName, Version: e.version}}
	sum.Graph, err = lsif.Build(lsif.NewEmitter(w), project, analyses)
	if err != nil {
		return nil, fmt.Errorf("arbor: write graph: %w", err)
	}

	if sum.Indexed == 0 {
		return sum, ErrNoFilesParsed
	}
	return sum, nil
}

// IndexDirectory discovers and loads the sources under root, then runs
// Index. Unreadable files become warnings.
func (e *Engine) IndexDirectory(ctx context.Context, root string, opts DiscoverOptions, w io.Writer) (*Summary, error) {
	paths, err := Discover(root, e.registry.LanguageForFile, opts)
	if err != nil {
		return nil, err
	}
	files, warnings := LoadSources(root, paths, e.registry.LanguageForFile)
	for _, warn := range warnings {
		e.log.WithError(warn.Err).WithField("file", warn.Path).Warn("file unreadable")
	}

	sum, err := e.Index(ctx, root, files, w)
	if sum != nil {
		sum.Warnings = append(warnings, sum.Warnings...)
	}
	return sum, err
}

// IsConfigError reports whether err is a configuration problem.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
