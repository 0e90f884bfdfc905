// Package queries embeds the builtin tree-sitter query programs. Each
// program classifies syntax nodes with exactly five capture names: scope,
// definition.scoped, definition.exported, reference and comment.
package queries

import "embed"

//go:embed *.scm
var FS embed.FS
