package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/konradmalik/htmllint-ls/core"
	"github.com/konradmalik/htmllint-ls/types"
)

var errProblemsFound = errors.New("problems found")

func newLintCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lint FILE...",
		Short: "Lint files and print the diagnostics the server would publish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd.Context(), cmd.OutOrStdout(), core.NewHandler(newEngine(opts)), args)
		},
	}
}

func runLint(ctx context.Context, out io.Writer, h *core.LangHandler, files []string) error {
	problems := 0
	for _, file := range files {
		path, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		uri := core.ParseLocalFileToURI(path)
		if err := h.OpenFile(uri, "html", 1, string(b)); err != nil {
			return err
		}
		result, err := h.Validate(ctx, uri)
		if err != nil {
			return err
		}
		_ = h.CloseFile(uri)
		if !result.OK() {
			return result.Err
		}

		for _, d := range result.Diagnostics {
			problems++
			fmt.Fprintf(out, "%s:%d:%d: %s%s\n", file, d.Range.Start.Line, d.Range.Start.Character, d.Message, codeSuffix(d))
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d %w", problems, errProblemsFound)
	}
	return nil
}

func codeSuffix(d types.Diagnostic) string {
	if d.Code == nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", *d.Code)
}
