package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScopes_NestsAndDiscardsOverlap(t *testing.T) {
	t.Parallel()
	spans := []Span{
		{Start: 60, End: 90},
		{Start: 20, End: 30},
		{Start: 10, End: 50},
		{Start: 25, End: 70}, // overlaps (20,30) and (10,50)
		{Start: 10, End: 50},
		{Start: 0, End: 100}, // same as the root
	}
	regions := buildScopes(spans, 100)

	require.Len(t, regions, 4)
	assert.Equal(t, ScopeRegion{ID: 0, Span: Span{Start: 0, End: 100}, Parent: NoScope}, regions[0])
	assert.Equal(t, ScopeRegion{ID: 1, Span: Span{Start: 10, End: 50}, Parent: 0}, regions[1])
	assert.Equal(t, ScopeRegion{ID: 2, Span: Span{Start: 20, End: 30}, Parent: 1}, regions[2])
	assert.Equal(t, ScopeRegion{ID: 3, Span: Span{Start: 60, End: 90}, Parent: 0}, regions[3])
}

func TestInnermost(t *testing.T) {
	t.Parallel()
	regions := buildScopes([]Span{{Start: 10, End: 50}, {Start: 20, End: 30}, {Start: 60, End: 90}}, 100)

	tests := []struct {
		span Span
		want ScopeID
	}{
		{Span{Start: 22, End: 23}, 2},
		{Span{Start: 35, End: 36}, 1},
		{Span{Start: 55, End: 56}, 0},
		{Span{Start: 60, End: 61}, 3},
		{Span{Start: 10, End: 50}, 1},
		{Span{Start: 0, End: 1}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, innermost(regions, tt.span), "%v", tt.span)
	}
}

func TestInnermost_ManySiblings(t *testing.T) {
	t.Parallel()
	var spans []Span
	for i := uint32(0); i < 1000; i++ {
		spans = append(spans, Span{Start: i * 10, End: i*10 + 5}, Span{Start: i*10 + 1, End: i*10 + 3})
	}
	regions := buildScopes(spans, 10000)
	require.Len(t, regions, 2001)

	// Gaps between siblings belong to the root.
	assert.Equal(t, RootScope, innermost(regions, Span{Start: 9996, End: 9997}))
	got := innermost(regions, Span{Start: 9992, End: 9993})
	assert.Equal(t, Span{Start: 9991, End: 9993}, regions[got].Span)
	got = innermost(regions, Span{Start: 9994, End: 9995})
	assert.Equal(t, Span{Start: 9990, End: 9995}, regions[got].Span)
}

func TestBuildScopes_EmptyFile(t *testing.T) {
	t.Parallel()
	regions := buildScopes(nil, 0)
	require.Len(t, regions, 1)
	assert.Equal(t, NoScope, regions[0].Parent)
}

func TestLineIndex_UTF16(t *testing.T) {
	t.Parallel()
	src := []byte("aé\U0001F600b\nsecond\r\nthird")
	li := newLineIndex(src)

	assert.Equal(t, Position{Line: 0, Character: 4}, li.position(7))
	assert.Equal(t, Position{Line: 1, Character: 0}, li.position(9))
	assert.Equal(t, Position{Line: 2, Character: 2}, li.position(19))
	assert.Equal(t, "second", string(li.lineText(10)))
	assert.Equal(t, "third", string(li.lineText(18)))
}
