package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/cobra"

	"github.com/konradmalik/htmllint-ls/core"
	"github.com/konradmalik/htmllint-ls/engine"
	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/lsp"
)

const name = "htmllint-ls"

var version = "0.1.0"

type options struct {
	logFile       string
	logLevel      string
	lintDebounce  time.Duration
	engineCommand string
	engineFormats []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           name,
		Short:         "Language server that lints HTML documents with htmllint rules",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (error|warn|info|debug)")
	flags.StringVar(&opts.engineCommand, "engine-command", "", "external lint command reading the document on stdin; supports ${INPUT}, ${FILEEXT}, ${ROOT} and ${CONFIG}")
	flags.StringSliceVar(&opts.engineFormats, "engine-format", []string{engine.FormatJSON}, "output format of --engine-command: json or errorformat patterns")
	rootCmd.Flags().DurationVar(&opts.lintDebounce, "lint-debounce", 0, "delay before linting a changed document")

	rootCmd.AddCommand(newLintCmd(opts), newVersionCmd())
	return rootCmd
}

func setupLogging(opts *options) error {
	level, err := logs.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logs.Log.SetLevel(level)

	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		logs.Log.SetOutput(f)
	}
	return nil
}

func newEngine(opts *options) engine.Engine {
	if opts.engineCommand == "" {
		return engine.NewNative()
	}
	return engine.NewCommand(opts.engineCommand, opts.engineFormats)
}

func runServer(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logs.Log.Logf(logs.Info, "%s %s starting", name, version)

	handler := lsp.NewHandler(core.NewHandler(newEngine(opts)))
	handler.SetLintDebounce(opts.lintDebounce)
	defer handler.Close()

	var connOpt []jsonrpc2.ConnOpt
	if logs.Log.Enabled(logs.Debug) {
		connOpt = append(connOpt, jsonrpc2.LogMessages(logs.Log))
	}

	conn := jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(stdrwc{}, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(handler.Handle),
		connOpt...)

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		_ = conn.Close()
		return nil
	}

	if !handler.ShutdownRequested() {
		return &lsp.ChannelError{Err: jsonrpc2.ErrClosed}
	}
	logs.Log.Logln(logs.Info, "connection closed")
	return nil
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
