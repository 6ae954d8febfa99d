package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/konradmalik/htmllint-ls/core"
	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/types"
)

func (h *LspHandler) HandleWorkspaceDidChangeConfiguration(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidChangeConfigurationParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	h.UpdateConfiguration(&params.Settings)
	h.RevalidateAll(*NewNotifier(conn), types.EventTypeSettingsChange)
	return nil, nil
}

// HandleWorkspaceDidChangeWatchedFiles revalidates every open document when any configuration file
// or package root changed, not only the documents below it.
func (h *LspHandler) HandleWorkspaceDidChangeWatchedFiles(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidChangeWatchedFilesParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	changed := false
	for _, c := range params.Changes {
		if core.AffectsConfig(path.Base(string(c.URI))) {
			changed = true
			break
		}
	}
	if !changed {
		return nil, nil
	}

	notifier := NewNotifier(conn)
	notifier.LogMessage(ctx, types.MessLog, "configuration file change event received")
	h.RevalidateAll(*notifier, types.EventTypeConfigFileChange)
	return nil, nil
}

func (h *LspHandler) HandleWorkspaceDidChangeWorkspaceFolders(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.DidChangeWorkspaceFoldersParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("workspace folder change event received: %d added, %d removed", len(params.Event.Added), len(params.Event.Removed))
	logs.Log.Logln(logs.Info, msg)
	NewNotifier(conn).LogMessage(ctx, types.MessLog, msg)
	return nil, nil
}
