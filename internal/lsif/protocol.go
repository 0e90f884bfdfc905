// Package lsif writes the Language Server Index Format graph: vertex and
// edge records serialized as newline-delimited JSON.
package lsif

// Version is the LSIF protocol version written to the metaData vertex.
const Version = "0.4.3"

// Element types.
const (
	TypeVertex = "vertex"
	TypeEdge   = "edge"
)

// Vertex labels.
const (
	LabelMetaData         = "metaData"
	LabelProject          = "project"
	LabelDocument         = "document"
	LabelRange            = "range"
	LabelResultSet        = "resultSet"
	LabelDefinitionResult = "definitionResult"
	LabelReferenceResult  = "referenceResult"
	LabelHoverResult      = "hoverResult"
)

// Edge labels.
const (
	EdgeContains   = "contains"
	EdgeNext       = "next"
	EdgeItem       = "item"
	EdgeDefinition = "textDocument/definition"
	EdgeReferences = "textDocument/references"
	EdgeHover      = "textDocument/hover"
)

// Item edge properties.
const (
	PropertyDefinitions = "definitions"
	PropertyReferences  = "references"
)

// Element is the header shared by every vertex and edge.
type Element struct {
	ID    uint64 `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type MetaData struct {
	Element
	Version          string   `json:"version"`
	PositionEncoding string   `json:"positionEncoding"`
	ToolInfo         ToolInfo `json:"toolInfo"`
	ProjectRoot      string   `json:"projectRoot"`
}

type ProjectVertex struct {
	Element
	Kind string `json:"kind"`
}

type Document struct {
	Element
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
}

// Pos is a zero-based line and UTF-16 character offset.
type Pos struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Element
	Start Pos `json:"start"`
	End   Pos `json:"end"`
}

// MarkedString is either plain markdown or a fenced code snippet.
type MarkedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type HoverContents struct {
	Contents []any `json:"contents"`
}

type HoverResult struct {
	Element
	Result HoverContents `json:"result"`
}

type Edge struct {
	Element
	OutV     uint64   `json:"outV"`
	InV      uint64   `json:"inV,omitempty"`
	InVs     []uint64 `json:"inVs,omitempty"`
	Document uint64   `json:"document,omitempty"`
	Property string   `json:"property,omitempty"`
}
