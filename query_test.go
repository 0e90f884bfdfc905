package arbor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handDump = `{"id":1,"type":"vertex","label":"metaData","version":"0.4.3","positionEncoding":"utf-16","toolInfo":{"name":"arbor"},"projectRoot":"file:///proj"}
{"id":2,"type":"vertex","label":"document","uri":"file:///proj/src/a.ts","languageId":"typescript"}
{"id":3,"type":"vertex","label":"range","start":{"line":0,"character":9},"end":{"line":0,"character":12}}
{"id":4,"type":"vertex","label":"resultSet"}
{"id":5,"type":"edge","label":"next","outV":3,"inV":4}
{"id":6,"type":"vertex","label":"definitionResult"}
{"id":7,"type":"edge","label":"textDocument/definition","outV":4,"inV":6}
{"id":8,"type":"edge","label":"item","outV":6,"inVs":[3],"document":2}
{"id":9,"type":"vertex","label":"hoverResult","result":{"contents":[{"language":"typescript","value":"function foo() {"},"Does foo."]}}
{"id":10,"type":"edge","label":"textDocument/hover","outV":4,"inV":9}
{"id":11,"type":"vertex","label":"range","start":{"line":1,"character":0},"end":{"line":1,"character":3}}
{"id":12,"type":"edge","label":"next","outV":11,"inV":4}
{"id":13,"type":"edge","label":"contains","outV":2,"inVs":[3,11]}
{"id":14,"type":"vertex","label":"referenceResult"}
{"id":15,"type":"edge","label":"textDocument/references","outV":4,"inV":14}
{"id":16,"type":"edge","label":"item","outV":14,"inVs":[3],"document":2,"property":"definitions"}
{"id":17,"type":"edge","label":"item","outV":14,"inVs":[11],"document":2,"property":"references"}
`

func loadHandDump(t *testing.T) *Dump {
	t.Helper()
	d, err := LoadDump(strings.NewReader(handDump))
	require.NoError(t, err)
	return d
}

func TestLoadDump_Documents(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"src/a.ts"}, loadHandDump(t).Documents())
}

func TestDefinitionAt(t *testing.T) {
	t.Parallel()
	d := loadHandDump(t)
	want := Location{
		File:       "src/a.ts",
		Start:      Position{Line: 0, Character: 9},
		End:        Position{Line: 0, Character: 12},
		Definition: true,
	}

	// From the use and from the definition itself.
	assert.Equal(t, []Location{want}, d.DefinitionAt("src/a.ts", 1, 2))
	assert.Equal(t, []Location{want}, d.DefinitionAt("src/a.ts", 0, 9))
}

func TestDefinitionAt_Misses(t *testing.T) {
	t.Parallel()
	d := loadHandDump(t)
	assert.Empty(t, d.DefinitionAt("src/a.ts", 1, 3), "range end is exclusive")
	assert.Empty(t, d.DefinitionAt("src/a.ts", 5, 0))
	assert.Empty(t, d.DefinitionAt("src/b.ts", 0, 9))
}

func TestReferencesTo(t *testing.T) {
	t.Parallel()
	refs := loadHandDump(t).ReferencesTo("src/a.ts", 1, 0)
	require.Len(t, refs, 2)
	assert.Equal(t, Position{Line: 0, Character: 9}, refs[0].Start)
	assert.True(t, refs[0].Definition)
	assert.Equal(t, Position{Line: 1, Character: 0}, refs[1].Start)
	assert.False(t, refs[1].Definition)
}

func TestHoverAt(t *testing.T) {
	t.Parallel()
	d := loadHandDump(t)
	text, ok := d.HoverAt("src/a.ts", 1, 1)
	require.True(t, ok)
	assert.Equal(t, "```typescript\nfunction foo() {\n```\n\nDoes foo.", text)

	_, ok = d.HoverAt("src/a.ts", 3, 0)
	assert.False(t, ok)
}

func TestLoadDump_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
	}{
		{"malformed json", `{"id":1,`},
		{"unknown range", `{"id":1,"type":"vertex","label":"document","uri":"file:///a.ts"}
{"id":2,"type":"edge","label":"contains","outV":1,"inVs":[9]}
`},
		{"bad hover", `{"id":1,"type":"vertex","label":"hoverResult","result":{"contents":[42]}}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadDump(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestLoadDump_Empty(t *testing.T) {
	t.Parallel()
	d, err := LoadDump(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, d.Documents())
	assert.Empty(t, d.ReferencesTo("a.ts", 0, 0))
}
