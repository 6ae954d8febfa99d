package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konradmalik/htmllint-ls/core"
	"github.com/konradmalik/htmllint-ls/logs"
)

func writeHTML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunLint(t *testing.T) {
	dir := t.TempDir()
	clean := writeHTML(t, dir, "clean.html", "<p></p>\n")
	dirty := writeHTML(t, dir, "dirty.html", "<div align=\"left\">\n  <p></p>\n</div>\n")

	var out bytes.Buffer
	err := runLint(t.Context(), &out, core.NewHandler(nil), []string{clean, dirty})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errProblemsFound))
	assert.Equal(t, "2 problems found", err.Error())
	assert.Equal(t,
		dirty+":1:5: The attribute \"align\" is banned (attr-bans)\n"+
			dirty+":2:2: Wrong indentation, expected indentation of 4 (indent-width)\n",
		out.String())

	out.Reset()
	require.NoError(t, runLint(t.Context(), &out, core.NewHandler(nil), []string{clean}))
	assert.Empty(t, out.String())
}

func TestRunLintInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".htmllintrc"), []byte(`{`), 0o644))
	file := writeHTML(t, dir, "index.html", "<p></p>")

	var out bytes.Buffer
	err := runLint(t.Context(), &out, core.NewHandler(nil), []string{file})
	var parseErr *core.ConfigParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestRunLintMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := runLint(t.Context(), &out, core.NewHandler(nil), []string{filepath.Join(t.TempDir(), "nope.html")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLintCommand(t *testing.T) {
	t.Cleanup(func() { logs.Log.SetLevel(logs.Warn) })

	dir := t.TempDir()
	file := writeHTML(t, dir, "index.html", "<p dataFoo=\"1\"></p>\n")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"lint", "--log-level", "error", file})

	err := cmd.ExecuteContext(t.Context())
	assert.ErrorIs(t, err, errProblemsFound)
	assert.Contains(t, out.String(), "(attr-name-style)")
	assert.Equal(t, logs.Error, logs.Log.Level())
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"lint", "--log-level", "loud", "x.html"})
	assert.Error(t, cmd.ExecuteContext(t.Context()))
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "pretty", args: []string{"version"}, contains: name + " " + version + " ("},
		{name: "json", args: []string{"version", "--format", "json"}, contains: `"version": "` + version + `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.ExecuteContext(t.Context()))
			assert.Contains(t, out.String(), tt.contains)
		})
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"version", "--format", "yaml"})
	assert.Error(t, cmd.ExecuteContext(t.Context()))
}
