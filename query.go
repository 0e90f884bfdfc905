package arbor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/jward/arbor/internal/lsif"
)

// Location is a range inside an indexed document. File is relative to the
// dump's project root.
type Location struct {
	File       string   `json:"file"`
	Start      Position `json:"start"`
	End        Position `json:"end"`
	Definition bool     `json:"definition,omitempty"`
}

// Dump is an LSIF graph loaded into memory for navigation queries.
type Dump struct {
	root      string
	docs      map[uint64]string   // document id -> relative path
	docRanges map[string][]uint64 // relative path -> range ids
	ranges    map[uint64]rangeInfo
	next      map[uint64]uint64 // range or resultSet -> resultSet
	defResult map[uint64]uint64 // resultSet -> definitionResult
	refResult map[uint64]uint64 // resultSet -> referenceResult
	hover     map[uint64]uint64 // resultSet -> hoverResult
	hovers    map[uint64]string
	items     map[uint64][]itemEdge
}

type rangeInfo struct {
	start, end lsif.Pos
	doc        uint64
}

type itemEdge struct {
	inVs     []uint64
	doc      uint64
	property string // definitions or references; empty on definitionResult items
}

// rawElement is the union of every vertex and edge field the reader needs.
type rawElement struct {
	ID          uint64          `json:"id"`
	Type        string          `json:"type"`
	Label       string          `json:"label"`
	ProjectRoot string          `json:"projectRoot"`
	URI         string          `json:"uri"`
	Start       lsif.Pos        `json:"start"`
	End         lsif.Pos        `json:"end"`
	Result      json.RawMessage `json:"result"`
	OutV        uint64          `json:"outV"`
	InV         uint64          `json:"inV"`
	InVs        []uint64        `json:"inVs"`
	Document    uint64          `json:"document"`
	Property    string          `json:"property"`
}

// LoadDump reads an LSIF NDJSON stream.
func LoadDump(r io.Reader) (*Dump, error) {
	d := &Dump{
		docs:      make(map[uint64]string),
		docRanges: make(map[string][]uint64),
		ranges:    make(map[uint64]rangeInfo),
		next:      make(map[uint64]uint64),
		defResult: make(map[uint64]uint64),
		refResult: make(map[uint64]uint64),
		hover:     make(map[uint64]uint64),
		hovers:    make(map[uint64]string),
		items:     make(map[uint64][]itemEdge),
	}

	dec := json.NewDecoder(r)
	for {
		var el rawElement
		err := dec.Decode(&el)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("arbor: read dump: %w", err)
		}
		if err := d.add(&el); err != nil {
			return nil, fmt.Errorf("arbor: read dump: element %d: %w", el.ID, err)
		}
	}
	for _, ids := range d.docRanges {
		sort.Slice(ids, func(i, j int) bool { return posLess(d.ranges[ids[i]].start, d.ranges[ids[j]].start) })
	}
	return d, nil
}

func (d *Dump) add(el *rawElement) error {
	switch el.Label {
	case lsif.LabelMetaData:
		d.root = uriPath(el.ProjectRoot)
	case lsif.LabelDocument:
		p := uriPath(el.URI)
		if d.root != "" {
			p = strings.TrimPrefix(strings.TrimPrefix(p, d.root), "/")
		}
		d.docs[el.ID] = p
	case lsif.LabelRange:
		d.ranges[el.ID] = rangeInfo{start: el.Start, end: el.End}
	case lsif.LabelHoverResult:
		text, err := hoverText(el.Result)
		if err != nil {
			return err
		}
		d.hovers[el.ID] = text
	case lsif.EdgeContains:
		doc, ok := d.docs[el.OutV]
		if !ok {
			return nil // project -> documents
		}
		for _, id := range el.InVs {
			ri, ok := d.ranges[id]
			if !ok {
				return fmt.Errorf("contains references unknown range %d", id)
			}
			ri.doc = el.OutV
			d.ranges[id] = ri
			d.docRanges[doc] = append(d.docRanges[doc], id)
		}
	case lsif.EdgeNext:
		d.next[el.OutV] = el.InV
	case lsif.EdgeDefinition:
		d.defResult[el.OutV] = el.InV
	case lsif.EdgeReferences:
		d.refResult[el.OutV] = el.InV
	case lsif.EdgeHover:
		d.hover[el.OutV] = el.InV
	case lsif.EdgeItem:
		d.items[el.OutV] = append(d.items[el.OutV], itemEdge{inVs: el.InVs, doc: el.Document, property: el.Property})
	}
	return nil
}

// Documents returns the indexed document paths, sorted.
func (d *Dump) Documents() []string {
	out := make([]string, 0, len(d.docs))
	for _, p := range d.docs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DefinitionAt returns the definition of the symbol at a zero-based
// line/character position.
func (d *Dump) DefinitionAt(file string, line, character int) []Location {
	rs, ok := d.resultSetAt(file, line, character)
	if !ok {
		return nil
	}
	locs := d.itemLocations(d.defResult[rs])
	for i := range locs {
		locs[i].Definition = true
	}
	return locs
}

// ReferencesTo returns every reference to the symbol at a position,
// including its definition.
func (d *Dump) ReferencesTo(file string, line, character int) []Location {
	rs, ok := d.resultSetAt(file, line, character)
	if !ok {
		return nil
	}
	return d.itemLocations(d.refResult[rs])
}

// HoverAt returns the hover text of the symbol at a position.
func (d *Dump) HoverAt(file string, line, character int) (string, bool) {
	rs, ok := d.resultSetAt(file, line, character)
	if !ok {
		return "", false
	}
	h, ok := d.hover[rs]
	if !ok {
		return "", false
	}
	text, ok := d.hovers[h]
	return text, ok
}

// resultSetAt finds the innermost range covering the position and follows
// its next edge.
func (d *Dump) resultSetAt(file string, line, character int) (uint64, bool) {
	at := lsif.Pos{Line: line, Character: character}
	var (
		best  uint64
		found bool
	)
	for _, id := range d.docRanges[path.Clean(file)] {
		ri := d.ranges[id]
		if posLess(at, ri.start) || !posLess(at, ri.end) {
			continue
		}
		if !found || posLess(d.ranges[best].start, ri.start) {
			best, found = id, true
		}
	}
	if !found {
		return 0, false
	}
	rs, ok := d.next[best]
	return rs, ok
}

func (d *Dump) itemLocations(result uint64) []Location {
	if result == 0 {
		return nil
	}
	var out []Location
	for _, it := range d.items[result] {
		for _, id := range it.inVs {
			ri, ok := d.ranges[id]
			if !ok {
				continue
			}
			out = append(out, Location{
				File:  d.docs[ri.doc],
				Start: Position{Line: ri.start.Line, Character: ri.start.Character},
				End:   Position{Line: ri.end.Line, Character: ri.end.Character},

				Definition: it.property == lsif.PropertyDefinitions,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		a, b := out[i].Start, out[j].Start
		return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
	})
	return out
}

func posLess(a, b lsif.Pos) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}

func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}

// hoverText renders hover contents as markdown.
func hoverText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var res struct {
		Contents []json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("hover result: %w", err)
	}
	parts := make([]string, 0, len(res.Contents))
	for _, c := range res.Contents {
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			parts = append(parts, s)
			continue
		}
		var ms lsif.MarkedString
		if err := json.Unmarshal(c, &ms); err != nil {
			return "", fmt.Errorf("hover content: %w", err)
		}
		parts = append(parts, "```"+ms.Language+"\n"+ms.Value+"\n```")
	}
	return strings.Join(parts, "\n\n"), nil
}
