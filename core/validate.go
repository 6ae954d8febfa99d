package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/konradmalik/htmllint-ls/engine"
	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/types"
)

// EngineError means the lint engine failed for a document.
type EngineError struct {
	URI types.DocumentURI
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("lint failed for %s: %v", e.URI, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// ValidationResult is the outcome of one validation pass over a document version.
type ValidationResult struct {
	URI         types.DocumentURI
	Version     int
	Diagnostics []types.Diagnostic
	Settings    types.Settings
	Err         error
}

func (r ValidationResult) OK() bool {
	return r.Err == nil
}

// Validate lints the current text of the document. It does not publish anything.
func (h *LangHandler) Validate(ctx context.Context, uri types.DocumentURI) (ValidationResult, error) {
	f, ok := h.snapshot(uri)
	if !ok {
		return ValidationResult{}, fmt.Errorf("document not found: %v", uri)
	}
	return h.validateSnapshot(ctx, f), nil
}

func (h *LangHandler) validateSnapshot(ctx context.Context, f fileRef) ValidationResult {
	result := ValidationResult{URI: f.Uri, Version: f.Version, Settings: h.session.GlobalSettings()}

	h.mu.RLock()
	fetch := h.fetchSettings
	root := h.RootPath
	h.mu.RUnlock()

	var settings types.Settings
	var settingsErr error
	var config types.LintConfig

	// a config error must not cancel the settings fetch
	var g errgroup.Group
	g.Go(func() error {
		settings, settingsErr = h.session.DocumentSettings(ctx, f.Uri, fetch)
		if settingsErr != nil {
			return fmt.Errorf("cannot get settings for %s: %w", f.Uri, settingsErr)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		config, err = h.resolver.Resolve(ctx, filepath.FromSlash(f.NormalizedFilename))
		return err
	})
	err := g.Wait()
	if settingsErr == nil {
		result.Settings = settings
	}
	if err != nil {
		result.Err = err
		return result
	}

	doc := engine.Document{Text: f.Text, Path: f.NormalizedFilename, Root: root}
	issues, err := h.engine.Lint(ctx, doc, config)
	if err != nil {
		result.Err = &EngineError{URI: f.Uri, Err: err}
		return result
	}

	diagnostics := Translate(issues, settings)
	if limit := settings.MaxNumberOfProblems; limit > 0 && len(diagnostics) > limit {
		diagnostics = diagnostics[:limit]
	}
	result.Diagnostics = diagnostics

	return result
}

// RunValidation validates the document and sends what should be published to diagnosticsOut.
// Results for a closed document or an outdated version are dropped. On failure either a single
// error diagnostic is published or, with reportErrors disabled, nothing at all. The failure is returned.
func (h *LangHandler) RunValidation(
	ctx context.Context, uri types.DocumentURI, eventType types.EventType,
	diagnosticsOut chan<- types.PublishDiagnosticsParams,
	progress chan<- types.ProgressParams) error {
	f, ok := h.snapshot(uri)
	if !ok {
		return fmt.Errorf("document not found: %v", uri)
	}

	logs.Log.Logf(logs.Debug, "validating %s version %d on %s", uri, f.Version, eventType)

	progressToken := types.NewProgressToken()
	progress <- types.ProgressParams{
		Token: progressToken,
		Value: types.NewWorkDoneProgressBegin("Linting document", nil, nil),
	}
	defer func() {
		progress <- types.ProgressParams{
			Token: progressToken,
			Value: types.NewWorkDoneProgressEnd(nil),
		}
	}()

	result := h.validateSnapshot(ctx, f)

	if ctx.Err() != nil {
		logs.Log.Logf(logs.Debug, "validation of %s version %d cancelled", uri, f.Version)
		return nil
	}
	if !h.isCurrent(uri, result.Version) {
		logs.Log.Logf(logs.Debug, "dropping stale diagnostics for %s version %d", uri, result.Version)
		return nil
	}

	if !result.OK() {
		if boolOrDefault(result.Settings.ReportErrors, true) {
			diagnosticsOut <- types.PublishDiagnosticsParams{
				URI:         uri,
				Diagnostics: []types.Diagnostic{errorDiagnostic(result.Err)},
				Version:     result.Version,
			}
		}
		return result.Err
	}

	diagnosticsOut <- types.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.Diagnostics,
		Version:     result.Version,
	}
	return nil
}

// errorDiagnostic describes a failed validation pass, pinned to the first line.
func errorDiagnostic(err error) types.Diagnostic {
	code := "lint-error"
	message := err.Error()

	var parseErr *ConfigParseError
	if errors.As(err, &parseErr) {
		code = "config-error"
		message = fmt.Sprintf("Invalid %s (%s): %v", filepath.Base(parseErr.Path), parseErr.Path, parseErr.Err)
	}

	return types.Diagnostic{
		Range: types.Range{
			Start: types.Position{Line: 0, Character: 0},
			End:   types.Position{Line: 0, Character: 1},
		},
		Severity: types.DiagError,
		Code:     &code,
		Source:   strPtr(types.Source),
		Message:  message,
	}
}
