// Package resolve links references left unresolved by per-file analysis to
// exported definitions of other files.
package resolve

import (
	"sort"

	"github.com/jward/arbor/internal/analysis"
)

// Candidate is one exported definition a name may resolve to.
type Candidate struct {
	Path       string
	Definition *analysis.Definition
}

// Index maps names to every exported definition carrying that name. It is
// built once per run and read-only afterwards.
type Index struct {
	byName map[string][]Candidate
	size   int
}

// BuildIndex collects the exported definitions of files. Candidates for a
// name keep file order, then definition order.
func BuildIndex(files []*analysis.FileAnalysis) *Index {
	ix := &Index{byName: make(map[string][]Candidate)}
	for _, fa := range files {
		for i := range fa.Definitions {
			d := &fa.Definitions[i]
			if !d.Exported {
				continue
			}
			ix.byName[d.Name] = append(ix.byName[d.Name], Candidate{Path: fa.Path, Definition: d})
			ix.size++
		}
	}
	return ix
}

// Lookup returns the candidates for name. The slice must not be modified.
func (ix *Index) Lookup(name string) []Candidate {
	return ix.byName[name]
}

// Len is the number of exported definitions indexed.
func (ix *Index) Len() int { return ix.size }

// Names returns the indexed names, sorted.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.byName))
	for n := range ix.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
