package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konradmalik/htmllint-ls/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveConfig(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		document string
		expected types.LintConfig
	}{
		{
			name: "sibling config",
			files: map[string]string{
				"proj/package.json":    `{}`,
				"proj/.htmllintrc":     `{"indent-width": 2}`,
				"proj/sub/.htmllintrc": `{"indent-width": 8}`,
				"proj/sub/doc.html":    ``,
			},
			document: "proj/sub/doc.html",
			expected: types.LintConfig{"indent-width": float64(8)},
		},
		{
			name: "ancestor config",
			files: map[string]string{
				"proj/.htmllintrc":  `{"attr-bans": ["align"]}`,
				"proj/sub/doc.html": ``,
			},
			document: "proj/sub/doc.html",
			expected: types.LintConfig{"attr-bans": []any{"align"}},
		},
		{
			name: "config next to the package root",
			files: map[string]string{
				"proj/package.json":   `{}`,
				"proj/.htmllintrc":    `{"id-no-dup": false}`,
				"proj/a/b/c/doc.html": ``,
			},
			document: "proj/a/b/c/doc.html",
			expected: types.LintConfig{"id-no-dup": false},
		},
		{
			name: "package root without config stops the search",
			files: map[string]string{
				"proj/.htmllintrc":      `{"indent-width": 2}`,
				"proj/sub/package.json": `{}`,
				"proj/sub/doc.html":     ``,
			},
			document: "proj/sub/doc.html",
			expected: types.LintConfig{},
		},
		{
			name: "no config anywhere",
			files: map[string]string{
				"proj/sub/doc.html": ``,
			},
			document: "proj/sub/doc.html",
			expected: types.LintConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(base, filepath.FromSlash(name)), content)
			}

			config, err := NewConfigResolver().Resolve(t.Context(), filepath.Join(base, filepath.FromSlash(tt.document)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, config)
		})
	}
}

func TestResolveConfigParseError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: `{"indent-width": `},
		{name: "empty", content: ``},
		{name: "null", content: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			rc := filepath.Join(base, types.ConfigFileName)
			writeFile(t, rc, tt.content)

			_, err := NewConfigResolver().Resolve(t.Context(), filepath.Join(base, "doc.html"))
			require.Error(t, err)

			var parseErr *ConfigParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, rc, parseErr.Path)
		})
	}
}

func TestResolveConfigWithoutPath(t *testing.T) {
	config, err := NewConfigResolver().Resolve(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, types.LintConfig{}, config)
}

func TestLocateConfig(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "proj", types.ConfigFileName), `{}`)

	path, ok := NewConfigResolver().Locate(filepath.Join(base, "proj", "sub", "doc.html"))
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(base, "proj", types.ConfigFileName), path)

	_, ok = NewConfigResolver().Locate(filepath.Join(t.TempDir(), "doc.html"))
	assert.False(t, ok)
}

func TestMatchRootPath(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "proj", "package.json"), `{}`)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "proj", "sub", ".git"), 0o755))

	assert.Equal(t, filepath.Join(base, "proj"), matchRootPath(filepath.Join(base, "proj", "sub", "doc.html"), []string{"package.json"}))
	assert.Equal(t, filepath.Join(base, "proj", "sub"), matchRootPath(filepath.Join(base, "proj", "sub", "doc.html"), []string{".git/"}))
	assert.Equal(t, "", matchRootPath(filepath.Join(base, "proj", "sub", "doc.html"), []string{"does-not-exist"}))
}
