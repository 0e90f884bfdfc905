package arbor

import (
	"errors"

	"github.com/jward/arbor/internal/analysis"
	"github.com/jward/arbor/internal/grammar"
	"github.com/jward/arbor/internal/lsif"
	"github.com/jward/arbor/internal/resolve"
	"github.com/jward/arbor/internal/syntax"
)

// Public aliases for the internal types that cross the Engine API. These are
// Go type aliases (=), so no conversion is needed.

type SourceFile = analysis.SourceFile
type FileAnalysis = analysis.FileAnalysis
type Definition = analysis.Definition
type Reference = analysis.Reference
type Position = analysis.Position
type Resolution = analysis.Resolution
type ResolveStats = resolve.Stats
type GraphStats = lsif.Stats
type ConfigError = grammar.ConfigError
type ParseError = syntax.ParseError

const (
	Unresolved       = analysis.Unresolved
	ResolvedLocal    = analysis.ResolvedLocal
	ResolvedCross    = analysis.ResolvedCross
	ResolvedExternal = analysis.ResolvedExternal
)

// ErrNoFilesParsed is returned by Index when no input file produced an
// analysis. The graph is still written.
var ErrNoFilesParsed = errors.New("arbor: no files could be parsed")

// Warning is a per-file problem that did not abort the run.
type Warning struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (w Warning) String() string {
	return w.Path + ": " + w.Err.Error()
}

// Summary reports what an indexing run did.
type Summary struct {
	Files      int          `json:"files"`
	Indexed    int          `json:"indexed"`
	Failed     int          `json:"failed"`
	Cached     int          `json:"cached"`
	References ResolveStats `json:"references"`
	Graph      GraphStats   `json:"graph"`
	Warnings   []Warning    `json:"-"`
}

// Unresolved counts references that ended outside the indexed set.
func (s *Summary) Unresolved() int {
	return s.References.External
}
