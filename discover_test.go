package arbor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/grammar"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestWalkListFiles_SkipsHiddenAndDependencyDirs(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"main.go":                   "package main\n",
		"lib/util.ts":               "export {}\n",
		".hidden/secret.py":         "x = 1\n",
		"node_modules/dep/index.js": "module.exports = 1\n",
		"vendor/mod/mod.go":         "package mod\n",
		"web/__pycache__/m.py":      "x = 1\n",
	})

	paths, err := walkListFiles(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "lib/util.ts"}, paths)
}

func TestWalkListFiles_Gitignore(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		".gitignore":       "generated/\n*.gen.ts\n",
		"app.ts":           "export {}\n",
		"app.gen.ts":       "export {}\n",
		"generated/out.go": "package out\n",
	})

	paths, err := walkListFiles(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".gitignore", "app.ts"}, paths)
}

func TestDiscover_FiltersBySupportedLanguage(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"b.py":      "x = 1\n",
		"a.go":      "package a\n",
		"README.md": "# readme\n",
		"web/c.tsx": "export {}\n",
	})

	paths, err := Discover(root, grammar.LanguageForFile, DiscoverOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.py", "web/c.tsx"}, paths)
}

func TestDiscover_IncludeExclude(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"src/a.ts":       "export {}\n",
		"src/a.test.ts":  "export {}\n",
		"src/deep/b.ts":  "export {}\n",
		"scripts/gen.py": "x = 1\n",
	})

	paths, err := Discover(root, grammar.LanguageForFile, DiscoverOptions{
		Include: []string{"src/**"},
		Exclude: []string{"**/*.test.ts"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.ts", "src/deep/b.ts"}, paths)
}

func TestDiscover_MaxFileSize(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"small.py": "x = 1\n",
		"large.py": "x = " + strings.Repeat("1", 200) + "\n",
	})

	paths, err := Discover(root, grammar.LanguageForFile, DiscoverOptions{MaxFileSize: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.py"}, paths)
}

func TestDiscover_InvalidGlob(t *testing.T) {
	t.Parallel()
	_, err := Discover(t.TempDir(), grammar.LanguageForFile, DiscoverOptions{Exclude: []string{"[unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid glob")
}

func TestLoadSources(t *testing.T) {
	t.Parallel()
	root := writeTree(t, map[string]string{
		"a.py":   "x = 1\n",
		"doc.md": "# doc\n",
	})

	files, warnings := LoadSources(root, []string{"a.py", "doc.md", "missing.go"}, grammar.LanguageForFile)
	require.Len(t, files, 1)
	assert.Equal(t, "a.py", files[0].Path)
	assert.Equal(t, "python", files[0].Language)
	assert.Equal(t, []byte("x = 1\n"), files[0].Content)
	assert.NotEmpty(t, files[0].Hash)

	require.Len(t, warnings, 1)
	assert.Equal(t, "missing.go", warnings[0].Path)
	assert.ErrorIs(t, warnings[0].Err, os.ErrNotExist)
}
