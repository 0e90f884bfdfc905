package resolve

import (
	"strings"

	"github.com/jward/arbor/internal/analysis"
)

// Policy chooses among several export candidates for one reference. It
// must be deterministic and return an index into candidates.
type Policy interface {
	Choose(ref *analysis.Reference, candidates []Candidate) (int, error)
}

// NearestPath prefers the candidate sharing the most leading directories
// with the referencing file, then the lexicographically smallest path,
// then the earliest definition in that file.
type NearestPath struct{}

// Choose implements Policy.
func (NearestPath) Choose(ref *analysis.Reference, candidates []Candidate) (int, error) {
	best := 0
	bestShared := SharedPrefix(ref.Path, candidates[0].Path)
	for i := 1; i < len(candidates); i++ {
		c := candidates[i]
		shared := SharedPrefix(ref.Path, c.Path)
		if shared > bestShared || (shared == bestShared && less(c, candidates[best])) {
			best, bestShared = i, shared
		}
	}
	return best, nil
}

func less(a, b Candidate) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	return a.Definition.Location.Span.Start < b.Definition.Location.Span.Start
}

// SharedPrefix counts the leading path segments a and b have in common.
// The file name itself counts, so a file is nearest to itself.
func SharedPrefix(a, b string) int {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	return n
}
