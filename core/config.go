package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/types"
)

// ConfigParseError means a configuration file exists but could not be parsed.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("malformed configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// ConfigResolver finds the configuration that applies to a document.
// Nothing is cached, every call walks the filesystem again.
type ConfigResolver struct {
	FileName    string
	RootMarkers []string
}

func NewConfigResolver() *ConfigResolver {
	return &ConfigResolver{
		FileName:    types.ConfigFileName,
		RootMarkers: []string{types.PackageRootMarker},
	}
}

// Locate returns the configuration file that applies to the document, if any.
// A sibling file wins, otherwise the nearest ancestor that is either a package root or holds a config file.
// A package root without a config file ends the search.
func (r *ConfigResolver) Locate(documentPath string) (string, bool) {
	candidate := filepath.Join(filepath.Dir(documentPath), r.FileName)
	if fileExists(candidate) {
		return candidate, true
	}

	markers := append([]string{r.FileName}, r.RootMarkers...)
	dir := matchRootPath(documentPath, markers)
	if dir == "" {
		return "", false
	}

	candidate = filepath.Join(dir, r.FileName)
	if fileExists(candidate) {
		return candidate, true
	}
	return "", false
}

// Resolve returns the parsed configuration for the document or an empty configuration when there is none.
func (r *ConfigResolver) Resolve(ctx context.Context, documentPath string) (types.LintConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if documentPath == "" {
		return types.LintConfig{}, nil
	}

	path, ok := r.Locate(documentPath)
	if !ok {
		logs.Log.Logf(logs.Debug, "no %s found for %s", r.FileName, documentPath)
		return types.LintConfig{}, nil
	}

	return ReadConfigFile(path)
}

func ReadConfigFile(path string) (types.LintConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.LintConfig{}, nil
		}
		return nil, err
	}

	var config types.LintConfig
	if err := json.Unmarshal(b, &config); err != nil {
		return nil, &ConfigParseError{Path: path, Err: err}
	}
	if config == nil {
		// a literal null
		return nil, &ConfigParseError{Path: path, Err: errors.New("configuration must be an object")}
	}

	logs.Log.Logf(logs.Debug, "using configuration %s", path)
	return config, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func matchRootPath(fname string, markers []string) string {
	dir := filepath.Dir(fname)
	var prev string
	for dir != prev {
		files, _ := os.ReadDir(dir)
		for _, file := range files {
			name := file.Name()
			isDir := file.IsDir()
			for _, marker := range markers {
				if strings.HasSuffix(marker, "/") {
					if !isDir {
						continue
					}
					marker = strings.TrimRight(marker, "/")
					if ok, _ := filepath.Match(marker, name); ok {
						return dir
					}
				} else {
					if isDir {
						continue
					}
					if ok, _ := filepath.Match(marker, name); ok {
						return dir
					}
				}
			}
		}
		prev = dir
		dir = filepath.Dir(dir)
	}

	return ""
}
