package analysis

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// lineIndex converts byte offsets into LSP style positions.
type lineIndex struct {
	src    []byte
	starts []uint32
}

func newLineIndex(src []byte) *lineIndex {
	starts := []uint32{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &lineIndex{src: src, starts: starts}
}

func (li *lineIndex) line(off uint32) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
}

func (li *lineIndex) lineStart(off uint32) uint32 {
	return li.starts[li.line(off)]
}

func (li *lineIndex) position(off uint32) Position {
	line := li.line(off)
	return Position{Line: line, Character: utf16Len(li.src[li.starts[line]:off])}
}

func (li *lineIndex) location(s Span) Location {
	return Location{Span: s, Start: li.position(s.Start), End: li.position(s.End)}
}

// lineText returns the line containing off, without its terminator.
func (li *lineIndex) lineText(off uint32) []byte {
	line := li.line(off)
	end := uint32(len(li.src))
	if line+1 < len(li.starts) {
		end = li.starts[line+1]
	}
	text := li.src[li.starts[line]:end]
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	return text
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}
