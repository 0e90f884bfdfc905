package main

import (
	"time"

	"github.com/jward/arbor"
	"github.com/jward/arbor/internal/grammar"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a JSON-friendly range. Lines and columns are 0-based.
type CLILocation struct {
	File       string `json:"file"`
	StartLine  int    `json:"start_line"`
	StartCol   int    `json:"start_col"`
	EndLine    int    `json:"end_line"`
	EndCol     int    `json:"end_col"`
	Definition bool   `json:"definition,omitempty"`
}

type CLIHover struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Contents string `json:"contents"`
}

type CLILanguage struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	QueryFile  string   `json:"query_file"`
}

// CLISummary reports an index run.
type CLISummary struct {
	Output     string   `json:"output"`
	Files      int      `json:"files"`
	Indexed    int      `json:"indexed"`
	Failed     int      `json:"failed"`
	Cached     int      `json:"cached"`
	Local      int      `json:"local_references"`
	Cross      int      `json:"cross_file_references"`
	Unresolved int      `json:"unresolved_references"`
	Ambiguous  int      `json:"ambiguous_references"`
	Documents  int      `json:"documents"`
	Vertices   int      `json:"vertices"`
	Edges      int      `json:"edges"`
	DurationMS int64    `json:"duration_ms"`
	Warnings   []string `json:"warnings,omitempty"`
}

func locationsToCLI(locs []arbor.Location) []CLILocation {
	out := make([]CLILocation, 0, len(locs))
	for _, l := range locs {
		out = append(out, CLILocation{
			File:       l.File,
			StartLine:  l.Start.Line,
			StartCol:   l.Start.Character,
			EndLine:    l.End.Line,
			EndCol:     l.End.Character,
			Definition: l.Definition,
		})
	}
	return out
}

func languagesToCLI() []CLILanguage {
	var out []CLILanguage
	for _, l := range grammar.Builtins() {
		out = append(out, CLILanguage{Name: l.Name, Extensions: l.Extensions, QueryFile: l.QueryFile})
	}
	return out
}

func summaryToCLI(sum *arbor.Summary, output string, elapsed time.Duration) CLISummary {
	s := CLISummary{
		Output:     output,
		Files:      sum.Files,
		Indexed:    sum.Indexed,
		Failed:     sum.Failed,
		Cached:     sum.Cached,
		Local:      sum.References.Local,
		Cross:      sum.References.Cross,
		Unresolved: sum.Unresolved(),
		Ambiguous:  sum.References.Ambiguous,
		Documents:  sum.Graph.Documents,
		Vertices:   sum.Graph.Vertices,
		Edges:      sum.Graph.Edges,
		DurationMS: elapsed.Milliseconds(),
	}
	for _, w := range sum.Warnings {
		s.Warnings = append(s.Warnings, w.String())
	}
	return s
}
