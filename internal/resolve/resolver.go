package resolve

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jward/arbor/internal/analysis"
)

// Stats counts references by final state. Ambiguous counts references
// that had more than one export candidate.
type Stats struct {
	Local     int `json:"local"`
	Cross     int `json:"cross"`
	External  int `json:"external"`
	Ambiguous int `json:"ambiguous"`
}

// Resolver advances every unresolved reference to a terminal state.
type Resolver struct {
	policy Policy
	log    *logrus.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicy replaces the NearestPath tie-break.
func WithPolicy(p Policy) Option {
	return func(r *Resolver) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithLogger sets the logger used for policy failures.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns a Resolver using NearestPath unless configured otherwise.
func New(opts ...Option) *Resolver {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	r := &Resolver{policy: NearestPath{}, log: discard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve takes ownership of files, builds the export index and resolves
// every Unresolved reference in place. References already resolved
// locally are left untouched. Failed analyses contribute nothing.
func (r *Resolver) Resolve(files []*analysis.FileAnalysis) (*Index, Stats) {
	ix := BuildIndex(files)
	var st Stats
	for _, fa := range files {
		for i := range fa.References {
			ref := &fa.References[i]
			switch ref.Resolution {
			case analysis.ResolvedLocal:
				st.Local++
				continue
			case analysis.Unresolved:
			default:
				continue
			}

			cands := sameNodeType(ix.Lookup(ref.Name), ref.NodeType)
			ref.Candidates = len(cands)
			switch len(cands) {
			case 0:
				ref.Resolution = analysis.ResolvedExternal
				st.External++
				continue
			case 1:
				ref.Resolution = analysis.ResolvedCross
				ref.Target = cands[0].Definition.Ref()
			default:
				st.Ambiguous++
				ref.Resolution = analysis.ResolvedCross
				ref.Target = cands[r.choose(ref, cands)].Definition.Ref()
			}
			st.Cross++
		}
	}
	return ix, st
}

// sameNodeType narrows cands to definitions whose name has the node type
// of the reference, so a plain identifier prefers a function over a struct
// field of the same name. When none match, every candidate stays.
func sameNodeType(cands []Candidate, nodeType string) []Candidate {
	if nodeType == "" || len(cands) == 0 {
		return cands
	}
	var out []Candidate
	for _, c := range cands {
		if c.Definition.NodeType == nodeType {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cands
	}
	return out
}

func (r *Resolver) choose(ref *analysis.Reference, cands []Candidate) int {
	i, err := r.policy.Choose(ref, cands)
	if err == nil && (i < 0 || i >= len(cands)) {
		err = fmt.Errorf("policy returned index %d for %d candidates", i, len(cands))
	}
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"file":       ref.Path,
			"name":       ref.Name,
			"candidates": len(cands),
		}).Warn("tie-break policy failed, using nearest path")
		i, _ = NearestPath{}.Choose(ref, cands)
	}
	return i
}
