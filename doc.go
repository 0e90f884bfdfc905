// Package arbor builds LSIF code-intelligence graphs from source trees
// using tree-sitter query programs.
//
// # Pipeline
//
// Indexing runs in three stages:
//
//  1. Analyze: every file is parsed and its language's query program is
//     run over the syntax tree to extract scopes, definitions, references
//     and comments. References that bind inside the file are resolved here.
//     Files are analyzed in parallel; results are ordered by path.
//
//  2. Resolve: exported definitions of all files are indexed by name and
//     every remaining reference is linked to a candidate, or marked
//     external when none exists. Several candidates are settled by a
//     tie-break policy (nearest path by default, or a Risor script).
//
//  3. Emit: an LSIF 0.4.3 graph is streamed as newline-delimited JSON.
//
// # Usage
//
//	e, err := arbor.New(arbor.WithCache(".arbor/cache.db"))
//	if err != nil { ... }
//	defer e.Close()
//
//	out, _ := os.Create("dump.lsif")
//	sum, err := e.IndexDirectory(ctx, "path/to/project", arbor.DiscoverOptions{}, out)
//
// A dump can be queried afterwards with [LoadDump]:
//
//	d, err := arbor.LoadDump(f)
//	locs := d.DefinitionAt("src/main.ts", 10, 4)
//
// # Languages
//
// Go, JavaScript, TypeScript, TSX and Python are built in. Their query
// programs live in the queries directory and are embedded in the binary;
// [WithQueriesFS] replaces them without rebuilding.
//
// # Errors
//
// A bad query program or unknown language fails [New] with a
// [*ConfigError]. A file that does not parse is reported as a [Warning]
// and left out of the graph. [ErrNoFilesParsed] is returned when nothing
// could be analyzed.
package arbor
