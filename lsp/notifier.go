package lsp

import (
	"context"
	"errors"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/konradmalik/htmllint-ls/types"
)

// ChannelError is a failure of the connection to the client. The server cannot recover from it.
type ChannelError struct {
	Method string
	Err    error
}

func (e *ChannelError) Error() string {
	if e.Method == "" {
		return "connection to client lost: " + e.Err.Error()
	}
	return "connection to client lost during " + e.Method + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func wrapCallError(method string, err error) error {
	if errors.Is(err, jsonrpc2.ErrClosed) {
		return &ChannelError{Method: method, Err: err}
	}
	return err
}

type LspNotifier struct {
	conn *jsonrpc2.Conn
}

func NewNotifier(conn *jsonrpc2.Conn) *LspNotifier {
	return &LspNotifier{conn}
}

func (n *LspNotifier) LogMessage(ctx context.Context, typ types.MessageType, message string) {
	_ = n.conn.Notify(
		ctx,
		"window/logMessage",
		&types.LogMessageParams{
			Type:    typ,
			Message: message,
		})
}

func (n *LspNotifier) PublishDiagnostics(ctx context.Context, params types.PublishDiagnosticsParams) {
	_ = n.conn.Notify(
		ctx,
		"textDocument/publishDiagnostics",
		&params)
}

func (n *LspNotifier) Progress(ctx context.Context, params types.ProgressParams) {
	_ = n.conn.Notify(
		ctx,
		"$/progress",
		&params)
}

func (n *LspNotifier) RegisterCapability(ctx context.Context, registrations ...types.Registration) error {
	err := n.conn.Call(
		ctx,
		"client/registerCapability",
		&types.RegistrationParams{Registrations: registrations},
		nil)
	return wrapCallError("client/registerCapability", err)
}

// Configuration requests the htmllint settings section for a document.
func (n *LspNotifier) Configuration(ctx context.Context, uri types.DocumentURI) (types.Settings, error) {
	var result []types.Settings
	err := n.conn.Call(
		ctx,
		"workspace/configuration",
		&types.ConfigurationParams{
			Items: []types.ConfigurationItem{{ScopeURI: uri, Section: types.ConfigSection}},
		},
		&result)
	if err != nil {
		return types.Settings{}, wrapCallError("workspace/configuration", err)
	}
	if len(result) == 0 {
		return types.DefaultSettings(), nil
	}
	return result[0], nil
}
