// Package grammar maps language tags to a tree-sitter grammar and a
// compiled query program. Programs are loaded and validated up front and
// are read-only afterwards, so a Registry is shared by all analysis workers
// without locking.
package grammar

import (
	"fmt"
	"io/fs"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/xxh3"

	"github.com/jward/arbor/queries"
)

// Program is a compiled query program for one language.
type Program struct {
	Language string
	Grammar  *sitter.Language
	Query    *sitter.Query
	Hash     string

	kinds []CaptureKind // indexed by capture id
}

// Kind returns the capture kind for a capture id reported by the query
// cursor.
func (p *Program) Kind(captureID uint32) CaptureKind {
	if int(captureID) >= len(p.kinds) {
		return CaptureUnknown
	}
	return p.kinds[captureID]
}

// Registry holds the compiled programs of every enabled language.
type Registry struct {
	programs map[string]*Program
	names    []string
	hash     string
}

type loadConfig struct {
	languages []string
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithLanguages restricts the registry to the named languages. Unknown
// names fail the load.
func WithLanguages(names ...string) LoadOption {
	return func(c *loadConfig) {
		c.languages = append(c.languages, names...)
	}
}

// Default loads the builtin query programs embedded in the binary.
func Default(opts ...LoadOption) (*Registry, error) {
	return Load(queries.FS, opts...)
}

// Load compiles the query program of every enabled builtin language from
// fsys. Any problem is returned as a *ConfigError.
func Load(fsys fs.FS, opts ...LoadOption) (*Registry, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	langs := Builtins()
	if len(cfg.languages) > 0 {
		langs = langs[:0:0]
		seen := make(map[string]bool)
		for _, name := range cfg.languages {
			if seen[name] {
				continue
			}
			seen[name] = true
			l, ok := lookupBuiltin(name)
			if !ok {
				return nil, &ConfigError{Language: name, Err: ErrUnsupportedLanguage}
			}
			langs = append(langs, l)
		}
		sort.Slice(langs, func(i, j int) bool { return langs[i].Name < langs[j].Name })
	}

	r := &Registry{programs: make(map[string]*Program, len(langs))}
	h := xxh3.New()
	for _, l := range langs {
		src, err := fs.ReadFile(fsys, l.QueryFile)
		if err != nil {
			r.Close()
			return nil, &ConfigError{Language: l.Name, File: l.QueryFile, Err: err}
		}
		p, err := compile(l, src)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.programs[l.Name] = p
		r.names = append(r.names, l.Name)
		h.WriteString(l.Name)
		h.WriteString(p.Hash)
	}
	r.hash = fmt.Sprintf("%016x", h.Sum64())
	return r, nil
}

func compile(l Language, src []byte) (*Program, error) {
	lang := l.grammar()
	q, err := sitter.NewQuery(src, lang)
	if err != nil {
		return nil, &ConfigError{Language: l.Name, File: l.QueryFile, Err: err}
	}

	n := q.CaptureCount()
	if n == 0 {
		q.Close()
		return nil, &ConfigError{Language: l.Name, File: l.QueryFile, Err: fmt.Errorf("query has no captures")}
	}
	kinds := make([]CaptureKind, n)
	for i := uint32(0); i < n; i++ {
		name := q.CaptureNameForId(i)
		k, ok := ParseCaptureKind(name)
		if !ok {
			q.Close()
			return nil, &ConfigError{
				Language: l.Name,
				File:     l.QueryFile,
				Err:      fmt.Errorf("%w: @%s", ErrUnknownCapture, name),
			}
		}
		kinds[i] = k
	}

	return &Program{
		Language: l.Name,
		Grammar:  lang,
		Query:    q,
		Hash:     fmt.Sprintf("%016x", xxh3.Hash(src)),
		kinds:    kinds,
	}, nil
}

// Program returns the compiled program for a language tag.
func (r *Registry) Program(lang string) (*Program, error) {
	p, ok := r.programs[lang]
	if !ok {
		return nil, &ConfigError{Language: lang, Err: ErrUnsupportedLanguage}
	}
	return p, nil
}

// LanguageForFile returns the language for path if it is enabled in this
// registry.
func (r *Registry) LanguageForFile(path string) (string, bool) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return "", false
	}
	_, enabled := r.programs[lang]
	return lang, enabled
}

// Languages returns the enabled language tags, sorted.
func (r *Registry) Languages() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Hash fingerprints every loaded query program. It changes whenever a
// query file changes, which invalidates cached analyses.
func (r *Registry) Hash() string {
	return r.hash
}

// Close releases the compiled queries.
func (r *Registry) Close() {
	for _, p := range r.programs {
		p.Query.Close()
	}
}
