package lsif

import (
	"net/url"
	"path"
	"path/filepath"
	"sort"

	"github.com/jward/arbor/internal/analysis"
)

// Project describes the run being written.
type Project struct {
	Root string // absolute directory the analysis paths are relative to
	Tool ToolInfo
}

// Stats summarises a written graph.
type Stats struct {
	Documents int `json:"documents"`
	Ranges    int `json:"ranges"`
	Vertices  int `json:"vertices"`
	Edges     int `json:"edges"`
}

// defInfo is the only state kept across documents: the ids a reference
// in any later document needs to link to its definition.
type defInfo struct {
	resultSet uint64
	refResult uint64
}

type builder struct {
	em    *Emitter
	root  string
	defs  map[analysis.DefinitionRef]defInfo
	docs  map[string]uint64
	stats Stats
}

// Build writes the graph for files, which must be in path order with
// references already resolved. Failed analyses are skipped. Each document
// is visited twice: once for its definitions, and once for its references,
// which may point into documents later in the order. Per-document ranges
// and reference items are written before moving to the next document.
func Build(em *Emitter, p Project, files []*analysis.FileAnalysis) (Stats, error) {
	b := &builder{
		em:   em,
		root: filepath.ToSlash(p.Root),
		defs: make(map[analysis.DefinitionRef]defInfo),
		docs: make(map[string]uint64),
	}

	em.MetaData(fileURI(b.root), p.Tool)
	project := em.Project(projectKind(files))

	var docIDs []uint64
	for _, fa := range files {
		if !fa.OK() {
			continue
		}
		doc := em.Document(fileURI(path.Join(b.root, fa.Path)), LanguageID(fa.Language))
		b.docs[fa.Path] = doc
		docIDs = append(docIDs, doc)
		if ranges := b.definitions(fa, doc); len(ranges) > 0 {
			em.Contains(doc, ranges)
		}
		b.stats.Documents++
	}

	for _, fa := range files {
		if doc, ok := b.docs[fa.Path]; ok {
			b.references(fa, doc)
		}
	}

	if len(docIDs) > 0 {
		em.Contains(project, docIDs)
	}

	b.stats.Vertices, b.stats.Edges = em.Counts()
	return b.stats, em.Flush()
}

func (b *builder) definitions(fa *analysis.FileAnalysis, doc uint64) []uint64 {
	em := b.em
	ranges := make([]uint64, 0, len(fa.Definitions))
	for i := range fa.Definitions {
		d := &fa.Definitions[i]
		rng := em.Range(pos(d.Location.Start), pos(d.Location.End))
		rs := em.ResultSet()
		em.Next(rng, rs)
		dr := em.DefinitionResult()
		em.TextDocumentDefinition(rs, dr)
		em.Item(dr, []uint64{rng}, doc, "")
		if contents := hoverContents(fa.Language, d); len(contents) > 0 {
			em.TextDocumentHover(rs, em.HoverResult(contents...))
		}
		rr := em.ReferenceResult()
		em.TextDocumentReferences(rs, rr)
		em.Item(rr, []uint64{rng}, doc, PropertyDefinitions)
		b.defs[d.Ref()] = defInfo{resultSet: rs, refResult: rr}
		ranges = append(ranges, rng)
	}
	b.stats.Ranges += len(ranges)
	return ranges
}

func (b *builder) references(fa *analysis.FileAnalysis, doc uint64) {
	em := b.em
	var ranges, results []uint64
	byRes := make(map[uint64][]uint64)
	seen := make(map[analysis.Span]bool)
	for i := range fa.References {
		r := &fa.References[i]
		if !r.Resolution.Resolved() || seen[r.Location.Span] {
			continue
		}
		target, ok := b.defs[r.Target]
		if !ok {
			continue
		}
		seen[r.Location.Span] = true
		rng := em.Range(pos(r.Location.Start), pos(r.Location.End))
		em.Next(rng, target.resultSet)
		if _, ok := byRes[target.refResult]; !ok {
			results = append(results, target.refResult)
		}
		byRes[target.refResult] = append(byRes[target.refResult], rng)
		ranges = append(ranges, rng)
	}
	if len(ranges) == 0 {
		return
	}
	b.stats.Ranges += len(ranges)
	em.Contains(doc, ranges)
	for _, rr := range results {
		em.Item(rr, byRes[rr], doc, PropertyReferences)
	}
}

func hoverContents(lang string, d *analysis.Definition) []any {
	var contents []any
	if d.Signature != "" {
		contents = append(contents, MarkedString{Language: LanguageID(lang), Value: d.Signature})
	}
	if d.Documentation != "" {
		contents = append(contents, d.Documentation)
	}
	return contents
}

func pos(p analysis.Position) Pos {
	return Pos{Line: p.Line, Character: p.Character}
}

func fileURI(p string) string {
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// LanguageID maps a language tag to the LSP language identifier.
func LanguageID(lang string) string {
	if lang == "tsx" {
		return "typescriptreact"
	}
	return lang
}

func projectKind(files []*analysis.FileAnalysis) string {
	seen := make(map[string]bool)
	for _, fa := range files {
		if fa.OK() {
			seen[LanguageID(fa.Language)] = true
		}
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	if len(kinds) == 1 {
		return kinds[0]
	}
	return "mixed"
}
