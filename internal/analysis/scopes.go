package analysis

import "sort"

// buildScopes nests the captured regions into a strict tree under a
// synthetic root covering the whole file. Regions are visited by start
// offset, outer before inner. A region that overlaps the open region
// without being contained by it is discarded.
func buildScopes(spans []Span, size uint32) []ScopeRegion {
	root := Span{Start: 0, End: size}
	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.End > size || s.Start >= s.End {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	regions := []ScopeRegion{{ID: RootScope, Span: root, Parent: NoScope}}
	stack := []ScopeID{RootScope}
	prev := root

next:
	for _, s := range sorted {
		if s == prev {
			continue
		}
		prev = s
		for {
			top := regions[stack[len(stack)-1]]
			if top.Span.Contains(s) {
				break
			}
			if s.Start < top.Span.End {
				continue next
			}
			stack = stack[:len(stack)-1]
		}
		id := ScopeID(len(regions))
		regions = append(regions, ScopeRegion{ID: id, Span: s, Parent: stack[len(stack)-1]})
		stack = append(stack, id)
	}
	return regions
}

// innermost returns the deepest region containing s. Regions are in
// preorder, so every container of s is an ancestor of the last region
// starting at or before s, and walking up from it meets the deepest first.
func innermost(regions []ScopeRegion, s Span) ScopeID {
	i := sort.Search(len(regions), func(i int) bool { return regions[i].Span.Start > s.Start })
	if i == 0 {
		return RootScope
	}
	for id := regions[i-1].ID; id != NoScope; id = regions[id].Parent {
		if regions[id].Span.Contains(s) {
			return id
		}
	}
	return RootScope
}
