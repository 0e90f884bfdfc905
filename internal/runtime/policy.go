package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/analysis"
	"github.com/jward/arbor/internal/resolve"
)

// DefaultPolicyTimeout bounds a single tie-break evaluation.
const DefaultPolicyTimeout = 2 * time.Second

// ScriptPolicy is a resolve.Policy backed by a Risor script. The script
// sees two globals and must evaluate to the index of the chosen candidate:
//
//	reference  {name, path, line, character}
//	candidates [{name, path, index, start, line, character, kind}, ...]
type ScriptPolicy struct {
	rt      *Runtime
	label   string
	source  string
	timeout time.Duration
}

var _ resolve.Policy = (*ScriptPolicy)(nil)

// NewScriptPolicy loads the script once; every Choose call evaluates the
// same source.
func NewScriptPolicy(rt *Runtime, scriptPath string) (*ScriptPolicy, error) {
	src, err := rt.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return &ScriptPolicy{rt: rt, label: scriptPath, source: src, timeout: DefaultPolicyTimeout}, nil
}

// Choose implements resolve.Policy.
func (p *ScriptPolicy) Choose(ref *analysis.Reference, candidates []resolve.Candidate) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	globals := map[string]any{
		"reference":  referenceObject(ref),
		"candidates": candidateList(candidates),
	}
	result, err := p.rt.eval(ctx, p.source, p.label, globals)
	if err != nil {
		return 0, err
	}
	n, ok := result.(*object.Int)
	if !ok {
		return 0, fmt.Errorf("runtime: script %s: expected int result, got %s", p.label, result.Type())
	}
	return int(n.Value()), nil
}

func referenceObject(ref *analysis.Reference) *object.Map {
	return object.NewMap(map[string]object.Object{
		"name":      object.NewString(ref.Name),
		"path":      object.NewString(ref.Path),
		"line":      object.NewInt(int64(ref.Location.Start.Line)),
		"character": object.NewInt(int64(ref.Location.Start.Character)),
	})
}

func candidateList(candidates []resolve.Candidate) *object.List {
	items := make([]object.Object, len(candidates))
	for i, c := range candidates {
		d := c.Definition
		items[i] = object.NewMap(map[string]object.Object{
			"name":      object.NewString(d.Name),
			"path":      object.NewString(c.Path),
			"index":     object.NewInt(int64(d.Index)),
			"start":     object.NewInt(int64(d.Location.Span.Start)),
			"line":      object.NewInt(int64(d.Location.Start.Line)),
			"character": object.NewInt(int64(d.Location.Start.Character)),
			"kind":      object.NewString(d.Kind),
		})
	}
	return object.NewList(items)
}
