package lsp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/konradmalik/htmllint-ls/core"
	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/types"
)

type LspHandler struct {
	langHandler  *core.LangHandler
	ctx          context.Context
	cancel       context.CancelFunc
	lintMu       sync.Mutex
	lintTimers   map[types.DocumentURI]*time.Timer
	running      map[types.DocumentURI]*lintRun
	lintDebounce time.Duration
	watcher      *core.ConfigWatcher
	shutdown     bool
}

type lintRun struct {
	cancel context.CancelFunc
}

func NewHandler(langHandler *core.LangHandler) *LspHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &LspHandler{
		langHandler: langHandler,
		ctx:         ctx,
		cancel:      cancel,
		lintTimers:  make(map[types.DocumentURI]*time.Timer),
		running:     make(map[types.DocumentURI]*lintRun),
	}
}

func (h *LspHandler) SetLintDebounce(d time.Duration) {
	h.lintMu.Lock()
	h.lintDebounce = d
	h.lintMu.Unlock()
}

func (h *LspHandler) UpdateConfiguration(config *types.Config) {
	if config.LintDebounce > 0 {
		h.SetLintDebounce(config.LintDebounce)
	}

	h.langHandler.UpdateConfiguration(config)
}

func (h *LspHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	switch req.Method {
	case "initialize":
		return h.HandleInitialize(ctx, conn, req)
	case "initialized":
		return h.HandleInitialized(ctx, conn, req)
	case "shutdown":
		return h.HandleShutdown(ctx, conn, req)
	case "exit":
		return h.HandleExit(ctx, conn, req)
	case "textDocument/didOpen":
		return h.HandleTextDocumentDidOpen(ctx, conn, req)
	case "textDocument/didChange":
		return h.HandleTextDocumentDidChange(ctx, conn, req)
	case "textDocument/didSave":
		return h.HandleTextDocumentDidSave(ctx, conn, req)
	case "textDocument/didClose":
		return h.HandleTextDocumentDidClose(ctx, conn, req)
	case "textDocument/completion":
		return h.HandleTextDocumentCompletion(ctx, conn, req)
	case "completionItem/resolve":
		return h.HandleCompletionItemResolve(ctx, conn, req)
	case "workspace/didChangeConfiguration":
		return h.HandleWorkspaceDidChangeConfiguration(ctx, conn, req)
	case "workspace/didChangeWatchedFiles":
		return h.HandleWorkspaceDidChangeWatchedFiles(ctx, conn, req)
	case "workspace/didChangeWorkspaceFolders":
		return h.HandleWorkspaceDidChangeWorkspaceFolders(ctx, conn, req)
	}

	if req.Notif {
		// unknown notifications ($/cancelRequest, $/setTrace...) are ignored
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", req.Method)}
}

// ScheduleLinting validates the document after the debounce delay. A newer request for the same
// document replaces a pending one and cancels a running one.
func (h *LspHandler) ScheduleLinting(notifier LspNotifier, uri types.DocumentURI, eventType types.EventType) {
	h.lintMu.Lock()
	defer h.lintMu.Unlock()

	if t, ok := h.lintTimers[uri]; ok {
		t.Stop()
		logs.Log.Logf(logs.Debug, "lint debounced: %v", h.lintDebounce)
	}

	var timer *time.Timer
	timer = time.AfterFunc(h.lintDebounce, func() {
		h.lintMu.Lock()
		if h.lintTimers[uri] != timer {
			h.lintMu.Unlock()
			return
		}
		delete(h.lintTimers, uri)

		if prev, ok := h.running[uri]; ok {
			prev.cancel()
		}
		ctx, cancel := context.WithCancel(h.ctx)
		run := &lintRun{cancel: cancel}
		h.running[uri] = run
		h.lintMu.Unlock()

		h.lint(ctx, notifier, uri, eventType)

		h.lintMu.Lock()
		cancel()
		if h.running[uri] == run {
			delete(h.running, uri)
		}
		h.lintMu.Unlock()
	})
	h.lintTimers[uri] = timer
}

// RevalidateAll schedules every open document.
func (h *LspHandler) RevalidateAll(notifier LspNotifier, eventType types.EventType) {
	for _, uri := range h.langHandler.OpenDocuments() {
		h.ScheduleLinting(notifier, uri, eventType)
	}
}

func (h *LspHandler) lint(ctx context.Context, notifier LspNotifier, uri types.DocumentURI, eventType types.EventType) {
	var wg sync.WaitGroup
	diagnostics := make(chan types.PublishDiagnosticsParams)
	progress := make(chan types.ProgressParams)

	wg.Go(func() {
		for d := range diagnostics {
			notifier.PublishDiagnostics(h.ctx, d)
		}
	})

	wg.Go(func() {
		for p := range progress {
			notifier.Progress(h.ctx, p)
		}
	})

	err := h.langHandler.RunValidation(ctx, uri, eventType, diagnostics, progress)
	close(diagnostics)
	close(progress)
	wg.Wait()

	if err != nil {
		logs.Log.Logln(logs.Error, err.Error())
		notifier.LogMessage(h.ctx, types.MessError, err.Error())
	}
}

func (h *LspHandler) cancelLinting(uri types.DocumentURI) {
	h.lintMu.Lock()
	defer h.lintMu.Unlock()

	if t, ok := h.lintTimers[uri]; ok {
		t.Stop()
		delete(h.lintTimers, uri)
	}
	if run, ok := h.running[uri]; ok {
		run.cancel()
		delete(h.running, uri)
	}
}

// ShutdownRequested reports whether the client sent shutdown before disconnecting.
func (h *LspHandler) ShutdownRequested() bool {
	h.lintMu.Lock()
	defer h.lintMu.Unlock()
	return h.shutdown
}

func (h *LspHandler) Close() {
	h.lintMu.Lock()
	for uri, t := range h.lintTimers {
		t.Stop()
		delete(h.lintTimers, uri)
	}
	watcher := h.watcher
	h.watcher = nil
	h.lintMu.Unlock()

	h.cancel()
	if watcher != nil {
		_ = watcher.Close()
	}
}
