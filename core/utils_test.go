package core

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konradmalik/htmllint-ls/types"
)

func TestNormalizedFilenameFromURI(t *testing.T) {
	uri := types.DocumentURI("file:///tmp/TestFile.html")
	fname, err := normalizedFilenameFromUri(uri)
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/TestFile.html", fname)
}

func TestPathFromURI(t *testing.T) {
	tests := []struct {
		name      string
		uri       types.DocumentURI
		expected  string
		expectErr bool
	}{
		{
			name:     "plain file",
			uri:      "file:///home/user/index.html",
			expected: filepath.FromSlash("/home/user/index.html"),
		},
		{
			name:     "escaped characters",
			uri:      "file:///home/user/my%20site/index.html",
			expected: filepath.FromSlash("/home/user/my site/index.html"),
		},
		{
			name:     "windows drive",
			uri:      "file:///c:/site/index.html",
			expected: filepath.FromSlash("C:/site/index.html"),
		},
		{
			name:      "untitled document",
			uri:       "untitled:Untitled-1",
			expectErr: true,
		},
		{
			name:      "not a uri",
			uri:       "index.html",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := PathFromURI(tt.uri)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, path)
		})
	}
}

func TestParseLocalFileToURIRoundTrip(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"index.html", "with space.html", "ünïcode.html"} {
		file := filepath.Join(base, name)
		uri := ParseLocalFileToURI(file)
		assert.Contains(t, string(uri), "file://")

		path, err := PathFromURI(uri)
		require.NoError(t, err)
		if runtime.GOOS == "windows" {
			assert.True(t, comparePaths(file, path))
		} else {
			assert.Equal(t, file, path)
		}
	}
}

func TestAffectsConfig(t *testing.T) {
	assert.True(t, AffectsConfig("/proj/.htmllintrc"))
	assert.True(t, AffectsConfig(".htmllintrc"))
	assert.True(t, AffectsConfig("/proj/package.json"))
	assert.True(t, AffectsConfig("package.json"))
	assert.False(t, AffectsConfig("/proj/.htmllintrc.json"))
	assert.False(t, AffectsConfig("/proj/.htmllintrc/index.html"))
	assert.False(t, AffectsConfig("/proj/package-lock.json"))
	assert.False(t, AffectsConfig("/proj/index.html"))
	assert.Equal(t, runtime.GOOS == "windows", AffectsConfig("/proj/.HTMLLINTRC"))
}

func TestBoolOrDefault(t *testing.T) {
	yes, no := true, false
	assert.True(t, boolOrDefault(nil, true))
	assert.False(t, boolOrDefault(nil, false))
	assert.True(t, boolOrDefault(&yes, false))
	assert.False(t, boolOrDefault(&no, true))
}
