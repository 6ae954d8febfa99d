package lsp

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/konradmalik/htmllint-ls/core"
	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/types"
)

var configWatchGlobs = []string{
	"**/" + types.ConfigFileName,
	"**/" + types.PackageRootMarker,
}

func (h *LspHandler) HandleInitialize(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams}
	}

	var params types.InitializeParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}

	if opts := params.InitializationOptions; opts != nil && opts.LintDebounce > 0 {
		h.SetLintDebounce(opts.LintDebounce)
	}

	notifier := NewNotifier(conn)
	h.langHandler.SetSettingsFetcher(notifier.Configuration)

	return h.langHandler.Initialize(params)
}

// HandleInitialized registers for configuration and config file changes. Registration is a request
// to the client, so it must not block the handler.
func (h *LspHandler) HandleInitialized(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	notifier := NewNotifier(conn)
	caps := h.langHandler.Session().Capabilities()

	registrations := make([]types.Registration, 0, 2)
	if caps.Configuration {
		registrations = append(registrations, types.Registration{
			ID:     uuid.New().String(),
			Method: "workspace/didChangeConfiguration",
		})
	}
	if caps.WatchedFilesRegistration {
		watchers := make([]types.FileSystemWatcher, 0, len(configWatchGlobs))
		for _, glob := range configWatchGlobs {
			watchers = append(watchers, types.FileSystemWatcher{GlobPattern: glob})
		}
		registrations = append(registrations, types.Registration{
			ID:              uuid.New().String(),
			Method:          "workspace/didChangeWatchedFiles",
			RegisterOptions: types.DidChangeWatchedFilesRegistrationOptions{Watchers: watchers},
		})
	} else {
		h.startConfigWatcher(*notifier)
	}

	if len(registrations) > 0 {
		go func() {
			if err := notifier.RegisterCapability(h.ctx, registrations...); err != nil {
				logs.Log.Logf(logs.Warn, "capability registration failed: %v", err)
			}
		}()
	}

	return nil, nil
}

func (h *LspHandler) startConfigWatcher(notifier LspNotifier) {
	root := h.langHandler.RootPath
	if root == "" {
		return
	}

	watcher, err := core.NewConfigWatcher(root, func(paths []string) {
		logs.Log.Logf(logs.Info, "configuration changed: %v", paths)
		h.RevalidateAll(notifier, types.EventTypeConfigFileChange)
	})
	if err != nil {
		logs.Log.Logf(logs.Warn, "cannot watch %s for configuration changes: %v", root, err)
		return
	}

	h.lintMu.Lock()
	h.watcher = watcher
	h.lintMu.Unlock()

	go watcher.Run(h.ctx)
}

func (h *LspHandler) HandleShutdown(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	h.lintMu.Lock()
	h.shutdown = true
	h.lintMu.Unlock()

	h.Close()
	return nil, nil
}

func (h *LspHandler) HandleExit(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	h.Close()
	_ = conn.Close()
	return nil, nil
}
