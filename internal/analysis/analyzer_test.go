package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/grammar"
	"github.com/jward/arbor/internal/syntax"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	r, err := grammar.Default()
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return New(r)
}

func analyze(t *testing.T, path, lang, src string) *FileAnalysis {
	t.Helper()
	fa := newTestAnalyzer(t).Analyze(NewSourceFile(path, lang, []byte(src)))
	require.NoError(t, fa.Err)
	return fa
}

func findDef(t *testing.T, fa *FileAnalysis, name string, line int) *Definition {
	t.Helper()
	for i := range fa.Definitions {
		d := &fa.Definitions[i]
		if d.Name == name && d.Location.Start.Line == line {
			return d
		}
	}
	t.Fatalf("definition %s on line %d not found in %+v", name, line, fa.Definitions)
	return nil
}

func findRef(t *testing.T, fa *FileAnalysis, name string, line int) *Reference {
	t.Helper()
	for i := range fa.References {
		r := &fa.References[i]
		if r.Name == name && r.Location.Start.Line == line {
			return r
		}
	}
	t.Fatalf("reference %s on line %d not found in %+v", name, line, fa.References)
	return nil
}

// =============================================================================
// Local resolution
// =============================================================================

func TestAnalyze_BlockLocal(t *testing.T) {
	t.Parallel()
	fa := analyze(t, "block.ts", "typescript", "{\n  let x = 1;\n  console.log(x);\n}\n")

	require.Len(t, fa.Definitions, 1)
	x := fa.Definitions[0]
	assert.Equal(t, "x", x.Name)
	assert.False(t, x.Exported)
	assert.NotEqual(t, RootScope, x.Scope)

	ref := findRef(t, fa, "x", 2)
	assert.Equal(t, ResolvedLocal, ref.Resolution)
	assert.Equal(t, x.Ref(), ref.Target)
	assert.Equal(t, Position{Line: 2, Character: 14}, ref.Location.Start)

	console := findRef(t, fa, "console", 2)
	assert.Equal(t, Unresolved, console.Resolution)
}

func TestAnalyze_Shadowing(t *testing.T) {
	t.Parallel()
	src := "let x = 1;\nfunction f() {\n  let x = 2;\n  return x;\n}\nx;\n"
	fa := analyze(t, "shadow.js", "javascript", src)

	outer := findDef(t, fa, "x", 0)
	inner := findDef(t, fa, "x", 2)
	assert.Equal(t, RootScope, outer.Scope)
	assert.NotEqual(t, RootScope, inner.Scope)

	innerUse := findRef(t, fa, "x", 3)
	assert.Equal(t, ResolvedLocal, innerUse.Resolution)
	assert.Equal(t, inner.Ref(), innerUse.Target)

	outerUse := findRef(t, fa, "x", 5)
	assert.Equal(t, ResolvedLocal, outerUse.Resolution)
	assert.Equal(t, outer.Ref(), outerUse.Target)
}

func TestAnalyze_DeclarationSitesAreNotReferences(t *testing.T) {
	t.Parallel()
	fa := analyze(t, "decl.ts", "typescript", "export function foo(a: number) {\n  return a;\n}\nfoo(1);\n")

	foo := findDef(t, fa, "foo", 0)
	a := findDef(t, fa, "a", 0)
	for _, r := range fa.References {
		assert.NotEqual(t, foo.Location.Span, r.Location.Span)
		assert.NotEqual(t, a.Location.Span, r.Location.Span)
	}

	assert.True(t, foo.Exported)
	assert.False(t, a.Exported)
	assert.Equal(t, "function_declaration", foo.Kind)
	assert.Equal(t, "export function foo(a: number) {", foo.Signature)

	// The function name is bound at file level, its parameter inside.
	assert.Equal(t, RootScope, foo.Scope)
	assert.NotEqual(t, RootScope, a.Scope)

	assert.Equal(t, a.Ref(), findRef(t, fa, "a", 1).Target)
	call := findRef(t, fa, "foo", 3)
	assert.Equal(t, ResolvedLocal, call.Resolution)
	assert.Equal(t, foo.Ref(), call.Target)
}

func TestAnalyze_UseBeforeDeclaration(t *testing.T) {
	t.Parallel()
	fa := analyze(t, "hoist.js", "javascript", "run();\nfunction run() {}\n")

	ref := findRef(t, fa, "run", 0)
	assert.Equal(t, ResolvedLocal, ref.Resolution)
	assert.Equal(t, findDef(t, fa, "run", 1).Ref(), ref.Target)
}

func TestAnalyze_Unresolved(t *testing.T) {
	t.Parallel()
	fa := analyze(t, "c.ts", "typescript", "doesNotExist();\n")
	require.Empty(t, fa.Definitions)
	ref := findRef(t, fa, "doesNotExist", 0)
	assert.Equal(t, Unresolved, ref.Resolution)
}

func TestAnalyze_Python(t *testing.T) {
	t.Parallel()
	fa := analyze(t, "greet.py", "python", "def greet(name):\n    return name\n\ngreet(\"x\")\n")

	greet := findDef(t, fa, "greet", 0)
	name := findDef(t, fa, "name", 0)
	assert.True(t, greet.Exported)
	assert.Equal(t, RootScope, greet.Scope)
	assert.NotEqual(t, RootScope, name.Scope)

	assert.Equal(t, name.Ref(), findRef(t, fa, "name", 1).Target)
	assert.Equal(t, greet.Ref(), findRef(t, fa, "greet", 3).Target)
}

func TestAnalyze_GoMethodsAndFields(t *testing.T) {
	t.Parallel()
	src := "package main\n\n// Server serves.\ntype Server struct {\n\tHost string\n}\n\nfunc (s *Server) Address() string {\n\treturn s.Host\n}\n"
	fa := analyze(t, "server.go", "go", src)

	server := findDef(t, fa, "Server", 3)
	assert.True(t, server.Exported)
	assert.Equal(t, "Server serves.", server.Documentation)

	// Members are exported for selectors but not bound at file level.
	address := findDef(t, fa, "Address", 7)
	assert.True(t, address.Exported)
	assert.Equal(t, "method_declaration", address.Kind)
	assert.NotEqual(t, RootScope, address.Scope)

	host := findDef(t, fa, "Host", 4)
	assert.True(t, host.Exported)
	assert.Equal(t, "field_identifier", host.NodeType)
	assert.NotEqual(t, RootScope, host.Scope)

	s := findDef(t, fa, "s", 7)
	assert.False(t, s.Exported)

	assert.Equal(t, server.Ref(), findRef(t, fa, "Server", 7).Target)
	assert.Equal(t, s.Ref(), findRef(t, fa, "s", 8).Target)

	// The selector is left to the cross-file resolver.
	sel := findRef(t, fa, "Host", 8)
	assert.Equal(t, Unresolved, sel.Resolution)
	assert.Equal(t, "field_identifier", sel.NodeType)
}

func TestAnalyze_GoMembersAreNotBareNames(t *testing.T) {
	t.Parallel()
	src := "package main\n\ntype T struct {\n\tName string\n}\n\nfunc (t T) Size() int { return 0 }\n\nfunc use() {\n\tName()\n\tSize()\n}\n"
	fa := analyze(t, "members.go", "go", src)

	assert.Equal(t, Unresolved, findRef(t, fa, "Name", 9).Resolution)
	assert.Equal(t, Unresolved, findRef(t, fa, "Size", 10).Resolution)
	assert.Equal(t, "identifier", findRef(t, fa, "Name", 9).NodeType)
}

func TestAnalyze_InitializerSeesOuterBinding(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		path     string
		lang     string
		src      string
		useLine  int // the initializer's use of x
		wantDef  int // definition it resolves to
		laterUse int // a use after the declaration
		laterDef int
	}{
		{
			name: "go short var", path: "f.go", lang: "go",
			src:     "package main\n\nfunc f() {\n\tx := 1\n\t{\n\t\tx := x + 1\n\t\t_ = x\n\t}\n}\n",
			useLine: 5, wantDef: 3, laterUse: 6, laterDef: 5,
		},
		{
			name: "javascript let", path: "f.js", lang: "javascript",
			src:     "let x = 1;\nfunction f() {\n  let x = x;\n  return x;\n}\n",
			useLine: 2, wantDef: 0, laterUse: 3, laterDef: 2,
		},
		{
			name: "python rebinding", path: "f.py", lang: "python",
			src:     "x = 1\nx = x + 1\nprint(x)\n",
			useLine: 1, wantDef: 0, laterUse: 2, laterDef: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fa := analyze(t, tt.path, tt.lang, tt.src)

			use := findRef(t, fa, "x", tt.useLine)
			assert.Equal(t, ResolvedLocal, use.Resolution)
			assert.Equal(t, findDef(t, fa, "x", tt.wantDef).Ref(), use.Target)

			later := findRef(t, fa, "x", tt.laterUse)
			assert.Equal(t, findDef(t, fa, "x", tt.laterDef).Ref(), later.Target)
		})
	}
}

func TestAnalyze_RecursionThroughNestedFunction(t *testing.T) {
	t.Parallel()
	fa := analyze(t, "fib.ts", "typescript", "const fib = (n: number): number => fib(n - 1);\n")

	ref := findRef(t, fa, "fib", 0)
	assert.Equal(t, ResolvedLocal, ref.Resolution)
	assert.Equal(t, findDef(t, fa, "fib", 0).Ref(), ref.Target)
}

// =============================================================================
// Documentation
// =============================================================================

func TestAnalyze_Documentation(t *testing.T) {
	t.Parallel()
	src := `// Adds two numbers.
// Returns the sum.
export function add(a: number, b: number): number {
  return a + b;
}

// detached

const y = 2;
let z = 3; // trailing
const w = 4;
/** Block doc. */
const v = 5;
`
	fa := analyze(t, "doc.ts", "typescript", src)

	assert.Equal(t, "Adds two numbers.\nReturns the sum.", findDef(t, fa, "add", 2).Documentation)
	assert.Empty(t, findDef(t, fa, "a", 2).Documentation)
	assert.Empty(t, findDef(t, fa, "y", 8).Documentation)
	assert.Empty(t, findDef(t, fa, "w", 10).Documentation)
	assert.Equal(t, "Block doc.", findDef(t, fa, "v", 12).Documentation)
	assert.Len(t, fa.Comments, 5)
}

func TestCleanComment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"// hello", "hello"},
		{"/// triple", "triple"},
		{"# python", "python"},
		{"/* block */", "block"},
		{"/**\n * Line one.\n * Line two.\n */", "Line one.\nLine two."},
		{"//", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanComment(tt.in), tt.in)
	}
}

// =============================================================================
// Failures and purity
// =============================================================================

func TestAnalyze_SyntaxError(t *testing.T) {
	t.Parallel()
	fa := newTestAnalyzer(t).Analyze(NewSourceFile("bad.ts", "typescript", []byte("function (((\n")))
	require.Error(t, fa.Err)
	assert.False(t, fa.OK())

	var pe *syntax.ParseError
	assert.True(t, errors.As(fa.Err, &pe))
	assert.Empty(t, fa.Definitions)
	assert.Empty(t, fa.References)
	assert.Empty(t, fa.Scopes)
	assert.Equal(t, "bad.ts", fa.Path)
}

func TestAnalyze_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	fa := newTestAnalyzer(t).Analyze(NewSourceFile("x.cob", "cobol", []byte("DISPLAY 'HI'.")))
	assert.ErrorIs(t, fa.Err, grammar.ErrUnsupportedLanguage)
}

func TestAnalyze_Pure(t *testing.T) {
	t.Parallel()
	a := newTestAnalyzer(t)
	src := NewSourceFile("p.ts", "typescript", []byte("// doc\nexport const k = 1;\nfunction g(n: number) { return n + k; }\n"))

	first := a.Analyze(src)
	second := a.Analyze(src)
	require.NoError(t, first.Err)
	assert.Equal(t, first, second)
}

func TestAnalyze_ScopeTreeIsStrict(t *testing.T) {
	t.Parallel()
	src := "function a() {\n  if (true) { let q = 1; }\n  const f = (y) => { return y; };\n}\nclass C {\n  m() { for (let i = 0; i < 1; i++) {} }\n}\n"
	fa := analyze(t, "tree.js", "javascript", src)

	require.Greater(t, len(fa.Scopes), 5)
	for _, s := range fa.Scopes[1:] {
		parent := fa.Scopes[s.Parent]
		assert.True(t, parent.Span.Contains(s.Span), "scope %d not inside parent", s.ID)
	}
	for i, x := range fa.Scopes {
		for _, y := range fa.Scopes[i+1:] {
			nested := x.Span.Contains(y.Span) || y.Span.Contains(x.Span)
			disjoint := x.Span.End <= y.Span.Start || y.Span.End <= x.Span.Start
			assert.True(t, nested || disjoint, "scopes %v and %v overlap", x.Span, y.Span)
		}
	}
}
