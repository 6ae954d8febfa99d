package lsp

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/konradmalik/htmllint-ls/types"
)

func (h *LspHandler) HandleTextDocumentDidOpen(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidOpenTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	doc := params.TextDocument
	if err := h.langHandler.OpenFile(doc.URI, doc.LanguageID, doc.Version, doc.Text); err != nil {
		return nil, err
	}

	h.ScheduleLinting(*NewNotifier(conn), doc.URI, types.EventTypeOpen)
	return nil, nil
}

func (h *LspHandler) HandleTextDocumentDidChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidChangeTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	if len(params.ContentChanges) == 0 {
		return nil, nil
	}

	// full sync: the last change holds the whole document
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	if err := h.langHandler.UpdateFile(params.TextDocument.URI, text, &params.TextDocument.Version); err != nil {
		return nil, err
	}

	h.ScheduleLinting(*NewNotifier(conn), params.TextDocument.URI, types.EventTypeChange)
	return nil, nil
}

func (h *LspHandler) HandleTextDocumentDidSave(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidSaveTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	if params.Text != nil {
		if err := h.langHandler.UpdateFile(params.TextDocument.URI, *params.Text, nil); err != nil {
			return nil, err
		}
	}

	h.ScheduleLinting(*NewNotifier(conn), params.TextDocument.URI, types.EventTypeSave)
	return nil, nil
}

func (h *LspHandler) HandleTextDocumentDidClose(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidCloseTextDocumentParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	h.cancelLinting(params.TextDocument.URI)
	return nil, h.langHandler.CloseFile(params.TextDocument.URI)
}
