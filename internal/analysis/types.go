package analysis

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/jward/arbor/internal/syntax"
)

// Span is a half-open byte range within one file.
type Span = syntax.Span

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Location pairs a byte span with its line/character positions.
type Location struct {
	Span  Span
	Start Position
	End   Position
}

// SourceFile is one input to the analyzer. Path is slash separated and
// relative to the project root.
type SourceFile struct {
	Path     string
	Language string
	Content  []byte
	Hash     string
}

// NewSourceFile builds a SourceFile and fingerprints its content.
func NewSourceFile(path, language string, content []byte) SourceFile {
	return SourceFile{
		Path:     path,
		Language: language,
		Content:  content,
		Hash:     ContentHash(content),
	}
}

// ContentHash returns the hex xxh3 fingerprint used to key cached
// analyses.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

// ScopeID identifies a scope region within one file. The file root is 0.
type ScopeID int

const (
	RootScope ScopeID = 0
	NoScope   ScopeID = -1
)

// ScopeRegion is a node of a file's scope tree.
type ScopeRegion struct {
	ID     ScopeID
	Span   Span
	Parent ScopeID
}

// Definition is a named binding. Identity is (Path, Location.Span).
type Definition struct {
	Index         int
	Name          string
	Path          string
	Location      Location
	Scope         ScopeID
	Exported      bool
	Kind          string // syntax node type of the declaring construct
	NodeType      string // syntax node type of the name itself
	Signature     string
	Documentation string
}

// Ref returns the handle other files use to point at d.
func (d *Definition) Ref() DefinitionRef {
	return DefinitionRef{Path: d.Path, Index: d.Index}
}

// DefinitionRef addresses a definition by file and index.
type DefinitionRef struct {
	Path  string
	Index int
}

// Resolution is the state of a reference.
type Resolution uint8

const (
	Unresolved Resolution = iota
	ResolvedLocal
	ResolvedCross
	ResolvedExternal
)

func (r Resolution) String() string {
	switch r {
	case Unresolved:
		return "unresolved"
	case ResolvedLocal:
		return "local"
	case ResolvedCross:
		return "cross"
	case ResolvedExternal:
		return "external"
	}
	return fmt.Sprintf("resolution(%d)", uint8(r))
}

// Resolved reports whether r points at a definition.
func (r Resolution) Resolved() bool {
	return r == ResolvedLocal || r == ResolvedCross
}

// Reference is a use of a name.
type Reference struct {
	Name       string
	Path       string
	Location   Location
	Scope      ScopeID
	NodeType   string
	Resolution Resolution
	Target     DefinitionRef // set when Resolution.Resolved()
	Candidates int           // export candidates seen by the resolver
}

// FileAnalysis is everything extracted from one file. Err is set when the
// file could not be analyzed; the analysis is then empty.
type FileAnalysis struct {
	Path        string
	Language    string
	Hash        string
	Scopes      []ScopeRegion
	Definitions []Definition
	References  []Reference
	Comments    []Span
	Err         error
}

// Failed returns an empty analysis for src tagged with err.
func Failed(src SourceFile, err error) *FileAnalysis {
	return &FileAnalysis{
		Path:     src.Path,
		Language: src.Language,
		Hash:     src.Hash,
		Err:      err,
	}
}

// OK reports whether the file was analyzed.
func (fa *FileAnalysis) OK() bool { return fa.Err == nil }

// Definition returns the definition at index i, or nil.
func (fa *FileAnalysis) Definition(i int) *Definition {
	if i < 0 || i >= len(fa.Definitions) {
		return nil
	}
	return &fa.Definitions[i]
}
