package core

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/konradmalik/htmllint-ls/types"
)

const fileScheme = "file"

// PathFromURI converts a file:// URI to a local filesystem path.
func PathFromURI(uri types.DocumentURI) (string, error) {
	u, err := url.ParseRequestURI(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != fileScheme {
		return "", fmt.Errorf("only file URIs are supported, got %v", u.Scheme)
	}
	if isWindowsDriveURIPath(u.Path) {
		u.Path = strings.ToUpper(string(u.Path[1])) + u.Path[2:]
	}
	return filepath.FromSlash(u.Path), nil
}

// ParseLocalFileToURI converts a local filesystem path to a file:// URI.
func ParseLocalFileToURI(path string) types.DocumentURI {
	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" || isWindowsDrivePath(path) {
		path = "/" + path
	}
	u := url.URL{Scheme: fileScheme, Path: path}
	return types.DocumentURI(u.String())
}

func isWindowsDrivePath(path string) bool {
	if len(path) < 2 {
		return false
	}
	c := path[0]
	return ((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) && path[1] == ':'
}

func isWindowsDriveURIPath(uri string) bool {
	if len(uri) < 4 {
		return false
	}
	return uri[0] == '/' && isWindowsDrivePath(uri[1:])
}

func normalizedFilenameFromUri(uri types.DocumentURI) (string, error) {
	fname, err := PathFromURI(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri: %v: %v", err, uri)
	}
	fname = filepath.ToSlash(fname)
	return fname, nil
}

// AffectsConfig reports whether a change to the file can change the configuration a document resolves to.
// Besides config files that includes package roots, which end the config lookup.
func AffectsConfig(path string) bool {
	base := filepath.Base(filepath.FromSlash(path))
	return comparePaths(base, types.ConfigFileName) || comparePaths(base, types.PackageRootMarker)
}

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func strPtr(s string) *string { return &s }

func blackHoleProgress() chan types.ProgressParams {
	ch := make(chan types.ProgressParams)
	go func() {
		for range ch {
			// discard values
		}
	}()
	return ch
}
