package lsif

import (
	"bufio"
	"encoding/json"
	"io"
)

// Emitter streams elements to a writer, numbering them with a run-wide
// counter starting at 1. The first write error is kept and reported by
// Flush; later emits are no-ops.
type Emitter struct {
	w   *bufio.Writer
	enc *json.Encoder
	id  uint64
	err error

	vertices int
	edges    int
}

// NewEmitter returns an Emitter writing NDJSON to w.
func NewEmitter(w io.Writer) *Emitter {
	bw := bufio.NewWriterSize(w, 64*1024)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Emitter{w: bw, enc: enc}
}

func (e *Emitter) next(typ, label string) Element {
	e.id++
	if typ == TypeVertex {
		e.vertices++
	} else {
		e.edges++
	}
	return Element{ID: e.id, Type: typ, Label: label}
}

func (e *Emitter) write(v any) {
	if e.err != nil {
		return
	}
	e.err = e.enc.Encode(v)
}

func (e *Emitter) MetaData(root string, tool ToolInfo) uint64 {
	v := MetaData{
		Element:          e.next(TypeVertex, LabelMetaData),
		Version:          Version,
		PositionEncoding: "utf-16",
		ToolInfo:         tool,
		ProjectRoot:      root,
	}
	e.write(v)
	return v.ID
}

func (e *Emitter) Project(kind string) uint64 {
	v := ProjectVertex{Element: e.next(TypeVertex, LabelProject), Kind: kind}
	e.write(v)
	return v.ID
}

func (e *Emitter) Document(uri, languageID string) uint64 {
	v := Document{Element: e.next(TypeVertex, LabelDocument), URI: uri, LanguageID: languageID}
	e.write(v)
	return v.ID
}

func (e *Emitter) Range(start, end Pos) uint64 {
	v := Range{Element: e.next(TypeVertex, LabelRange), Start: start, End: end}
	e.write(v)
	return v.ID
}

func (e *Emitter) ResultSet() uint64 {
	return e.bare(LabelResultSet)
}

func (e *Emitter) DefinitionResult() uint64 {
	return e.bare(LabelDefinitionResult)
}

func (e *Emitter) ReferenceResult() uint64 {
	return e.bare(LabelReferenceResult)
}

func (e *Emitter) bare(label string) uint64 {
	v := e.next(TypeVertex, label)
	e.write(v)
	return v.ID
}

func (e *Emitter) HoverResult(contents ...any) uint64 {
	v := HoverResult{Element: e.next(TypeVertex, LabelHoverResult), Result: HoverContents{Contents: contents}}
	e.write(v)
	return v.ID
}

func (e *Emitter) Contains(outV uint64, inVs []uint64) uint64 {
	return e.edge(Edge{Element: e.next(TypeEdge, EdgeContains), OutV: outV, InVs: inVs})
}

func (e *Emitter) Next(outV, inV uint64) uint64 {
	return e.edge(Edge{Element: e.next(TypeEdge, EdgeNext), OutV: outV, InV: inV})
}

func (e *Emitter) Item(outV uint64, inVs []uint64, document uint64, property string) uint64 {
	return e.edge(Edge{Element: e.next(TypeEdge, EdgeItem), OutV: outV, InVs: inVs, Document: document, Property: property})
}

func (e *Emitter) TextDocumentDefinition(outV, inV uint64) uint64 {
	return e.edge(Edge{Element: e.next(TypeEdge, EdgeDefinition), OutV: outV, InV: inV})
}

func (e *Emitter) TextDocumentReferences(outV, inV uint64) uint64 {
	return e.edge(Edge{Element: e.next(TypeEdge, EdgeReferences), OutV: outV, InV: inV})
}

func (e *Emitter) TextDocumentHover(outV, inV uint64) uint64 {
	return e.edge(Edge{Element: e.next(TypeEdge, EdgeHover), OutV: outV, InV: inV})
}

func (e *Emitter) edge(v Edge) uint64 {
	e.write(v)
	return v.ID
}

// Counts returns the number of vertices and edges emitted so far.
func (e *Emitter) Counts() (vertices, edges int) {
	return e.vertices, e.edges
}

// Flush writes buffered output and returns the first error seen.
func (e *Emitter) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}
