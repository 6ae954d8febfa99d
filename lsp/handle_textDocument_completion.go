package lsp

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/konradmalik/htmllint-ls/types"
)

// HandleTextDocumentCompletion offers no items yet.
func (h *LspHandler) HandleTextDocumentCompletion(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	return []types.CompletionItem{}, nil
}

func (h *LspHandler) HandleCompletionItemResolve(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var item types.CompletionItem
	if err := json.Unmarshal(*req.Params, &item); err != nil {
		return nil, err
	}
	return item, nil
}
