// Package engine holds the lint engines the server can run over a document.
//
// An engine is a pure function of the document text and the resolved
// configuration. It reports issues with 0-based lines and columns.
package engine

import (
	"context"

	"github.com/konradmalik/htmllint-ls/types"
)

// Document is the input of one lint run.
type Document struct {
	Text string
	// Path is the slash separated file path, empty for untitled documents.
	Path string
	// Root is the workspace root, empty when the client sent none.
	Root string
}

type Engine interface {
	Lint(ctx context.Context, doc Document, config types.LintConfig) ([]types.Issue, error)
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, doc Document, config types.LintConfig) ([]types.Issue, error)

func (f Func) Lint(ctx context.Context, doc Document, config types.LintConfig) ([]types.Issue, error) {
	return f(ctx, doc, config)
}
