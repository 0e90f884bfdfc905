package grammar

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language describes a builtin language: the file extensions that select
// it, the query program file it runs and the grammar it parses with.
type Language struct {
	Name       string
	Extensions []string
	QueryFile  string
	grammar    func() *sitter.Language
}

// builtins is the language table. Adding a language is a new row plus a
// query file; nothing else in the pipeline is language specific.
var builtins = []Language{
	{Name: "go", Extensions: []string{".go"}, QueryFile: "go.scm", grammar: golang.GetLanguage},
	{Name: "javascript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, QueryFile: "javascript.scm", grammar: javascript.GetLanguage},
	{Name: "python", Extensions: []string{".py", ".pyi"}, QueryFile: "python.scm", grammar: python.GetLanguage},
	{Name: "tsx", Extensions: []string{".tsx"}, QueryFile: "typescript.scm", grammar: tsx.GetLanguage},
	{Name: "typescript", Extensions: []string{".ts", ".mts", ".cts"}, QueryFile: "typescript.scm", grammar: ts.GetLanguage},
}

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = func() map[string]string {
	m := make(map[string]string)
	for _, l := range builtins {
		for _, ext := range l.Extensions {
			m[ext] = l.Name
		}
	}
	return m
}()

// Builtins returns the builtin language table sorted by name.
func Builtins() []Language {
	out := make([]Language, len(builtins))
	copy(out, builtins)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

func lookupBuiltin(name string) (Language, bool) {
	for _, l := range builtins {
		if l.Name == name {
			return l, true
		}
	}
	return Language{}, false
}
