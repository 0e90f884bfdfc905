package analysis

import (
	"bytes"
	"sort"
	"strings"
)

// attachDocs turns comment blocks into documentation. A block documents the
// first following definition of its scope when nothing but whitespace and
// at most one line break separates them. Trailing comments, those that do
// not start their line, document nothing.
func attachDocs(fa *FileAnalysis, src []byte, li *lineIndex) {
	defs := fa.Definitions
	for _, block := range commentBlocks(fa.Comments, src) {
		first := block[0]
		if !blank(src[li.lineStart(first.Start):first.Start]) {
			continue
		}
		end := block[len(block)-1].End
		span := Span{Start: first.Start, End: end}
		scope := innermost(fa.Scopes, span)

		i := sort.Search(len(defs), func(i int) bool { return defs[i].Location.Span.Start >= end })
		for ; i < len(defs); i++ {
			if defs[i].Scope == scope {
				break
			}
		}
		if i == len(defs) {
			continue
		}
		d := &defs[i]
		if gapStart := li.lineStart(d.Location.Span.Start); gapStart > end && !adjacent(src[end:gapStart]) {
			continue
		}

		texts := make([]string, 0, len(block))
		for _, c := range block {
			if t := cleanComment(string(src[c.Start:c.End])); t != "" {
				texts = append(texts, t)
			}
		}
		if doc := strings.Join(texts, "\n"); doc != "" {
			d.Documentation = doc
		}
	}
}

// commentBlocks groups runs of comments separated only by whitespace with
// at most one line break.
func commentBlocks(comments []Span, src []byte) [][]Span {
	var blocks [][]Span
	for _, c := range comments {
		if n := len(blocks); n > 0 {
			prev := blocks[n-1][len(blocks[n-1])-1]
			if prev.End <= c.Start && adjacent(src[prev.End:c.Start]) {
				blocks[n-1] = append(blocks[n-1], c)
				continue
			}
		}
		blocks = append(blocks, []Span{c})
	}
	return blocks
}

func blank(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0
}

func adjacent(gap []byte) bool {
	return blank(gap) && bytes.Count(gap, []byte{'\n'}) <= 1
}

// cleanComment strips comment markers from a line or block comment.
func cleanComment(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimSuffix(strings.TrimPrefix(s, "/*"), "*/")
		lines := strings.Split(s, "\n")
		for i, l := range lines {
			l = strings.TrimSpace(l)
			l = strings.TrimLeft(l, "*")
			lines[i] = strings.TrimSpace(l)
		}
		s = strings.Join(lines, "\n")
	case strings.HasPrefix(s, "//"):
		s = strings.TrimLeft(s, "/")
		s = strings.TrimPrefix(s, "!")
	case strings.HasPrefix(s, "#"):
		s = strings.TrimLeft(s, "#")
	}
	return strings.TrimSpace(s)
}
