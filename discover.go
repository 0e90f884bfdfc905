package arbor

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/arbor/internal/analysis"
)

// LanguageFunc maps a path to an enabled language tag.
type LanguageFunc func(path string) (string, bool)

// DiscoverOptions filters the files Discover returns. Globs use doublestar
// syntax and match slash-separated paths relative to the root.
type DiscoverOptions struct {
	Include     []string // empty means everything
	Exclude     []string
	MaxFileSize int64 // 0 means no limit
}

// skipDirs are never descended into by the directory walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// Discover lists the files under root that belong to an enabled language.
// Inside a git work tree it uses git ls-files, which honours every ignore
// source git knows about. Otherwise it walks the directory, skipping
// hidden and dependency directories and applying the root .gitignore.
// Paths are slash-separated, relative to root and sorted.
func Discover(root string, lang LanguageFunc, opts DiscoverOptions) ([]string, error) {
	for _, g := range append(append([]string(nil), opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("arbor: discover: invalid glob %q", g)
		}
	}

	candidates, err := gitListFiles(root)
	if err != nil {
		candidates, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}

	var paths []string
	for _, rel := range candidates {
		if _, ok := lang(rel); !ok {
			continue
		}
		if !opts.matches(rel) {
			continue
		}
		if opts.MaxFileSize > 0 {
			info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil || !info.Mode().IsRegular() || info.Size() > opts.MaxFileSize {
				continue
			}
		}
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths, nil
}

func (o DiscoverOptions) matches(rel string) bool {
	if len(o.Include) > 0 && !matchAny(o.Include, rel) {
		return false
	}
	return !matchAny(o.Exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// gitListFiles returns tracked and untracked-but-not-ignored files.
func gitListFiles(root string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		paths = append(paths, path.Clean(line))
	}
	return paths, nil
}

// walkListFiles is the fallback when root is not a git work tree.
func walkListFiles(root string) ([]string, error) {
	var gi *ignore.GitIgnore
	if g, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = g
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("arbor: walk directory: %w", err)
	}
	return paths, nil
}

// LoadSources reads paths (relative to root) into SourceFiles. Files that
// cannot be read or have no enabled language become warnings.
func LoadSources(root string, paths []string, lang LanguageFunc) ([]SourceFile, []Warning) {
	var (
		files    []SourceFile
		warnings []Warning
	)
	for _, rel := range paths {
		l, ok := lang(rel)
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			warnings = append(warnings, Warning{Path: rel, Err: err})
			continue
		}
		files = append(files, analysis.NewSourceFile(rel, l, content))
	}
	return files, warnings
}
