package core

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konradmalik/htmllint-ls/engine"
	"github.com/konradmalik/htmllint-ls/types"
)

const scenarioText = "<div STYLE=\"\">\n</div>"

func scenarioEngine() engine.Engine {
	return engine.Func(func(ctx context.Context, doc engine.Document, config types.LintConfig) ([]types.Issue, error) {
		return []types.Issue{
			{
				Code:   "E011",
				Rule:   "id-class-style",
				Line:   0,
				Column: 5,
				Data:   types.IssueData{Attribute: "STYLE", Value: "", Format: "lowercase"},
			},
		}, nil
	})
}

func openTestFile(t *testing.T, h *LangHandler, dir, name, text string) types.DocumentURI {
	t.Helper()
	uri := ParseLocalFileToURI(filepath.Join(dir, name))
	require.NoError(t, h.OpenFile(uri, "html", 1, text))
	return uri
}

func (h *LangHandler) publishedForTest(t *testing.T, uri types.DocumentURI) ([]types.PublishDiagnosticsParams, error) {
	var wg sync.WaitGroup
	published := make([]types.PublishDiagnosticsParams, 0)

	diagnostics := make(chan types.PublishDiagnosticsParams)
	progress := blackHoleProgress()

	wg.Go(func() {
		for d := range diagnostics {
			published = append(published, d)
		}
	})

	err := h.RunValidation(t.Context(), uri, types.EventTypeChange, diagnostics, progress)
	close(diagnostics)
	close(progress)
	wg.Wait()

	return published, err
}

func TestValidateScenario(t *testing.T) {
	h := NewHandler(scenarioEngine())
	uri := openTestFile(t, h, t.TempDir(), "doc.html", scenarioText)

	result, err := h.Validate(t.Context(), uri)
	require.NoError(t, err)
	require.True(t, result.OK())
	require.Len(t, result.Diagnostics, 1)

	d := result.Diagnostics[0]
	assert.Equal(t, `Value "" of attribute "STYLE" does not respect the format 'lowercase'`, d.Message)
	assert.Equal(t, types.Range{
		Start: types.Position{Line: 1, Character: 5},
		End:   types.Position{Line: 1, Character: 6},
	}, d.Range)
}

func TestValidatePassesTextAndConfigToEngine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, types.ConfigFileName), `{"indent-width": 2}`)

	var gotDoc engine.Document
	var gotConfig types.LintConfig
	h := NewHandler(engine.Func(func(ctx context.Context, doc engine.Document, config types.LintConfig) ([]types.Issue, error) {
		gotDoc = doc
		gotConfig = config
		return nil, nil
	}))
	_, err := h.Initialize(types.InitializeParams{RootURI: ParseLocalFileToURI(dir)})
	require.NoError(t, err)
	uri := openTestFile(t, h, filepath.Join(dir, "sub"), "doc.html", "<p></p>")

	result, err := h.Validate(t.Context(), uri)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, "<p></p>", gotDoc.Text)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "sub", "doc.html")), gotDoc.Path)
	assert.Equal(t, filepath.Clean(dir), gotDoc.Root)
	assert.Equal(t, types.LintConfig{"indent-width": float64(2)}, gotConfig)
}

func TestValidateIsIdempotent(t *testing.T) {
	h := NewHandler(engine.NewNative())
	uri := openTestFile(t, h, t.TempDir(), "doc.html", "<div style=\"x\" align=\"left\">\n  <p id=\"a\" id=\"a\"></p>\n</div>\n")

	first, err := h.publishedForTest(t, uri)
	require.NoError(t, err)
	second, err := h.publishedForTest(t, uri)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.NotEmpty(t, first[0].Diagnostics)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunValidationPublishesEmptySetToClear(t *testing.T) {
	h := NewHandler(engine.Func(func(context.Context, engine.Document, types.LintConfig) ([]types.Issue, error) {
		return nil, nil
	}))
	uri := openTestFile(t, h, t.TempDir(), "doc.html", "<p></p>")

	published, err := h.publishedForTest(t, uri)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, uri, published[0].URI)
	assert.Equal(t, 1, published[0].Version)
	assert.NotNil(t, published[0].Diagnostics)
	assert.Empty(t, published[0].Diagnostics)
}

func TestRunValidationErrors(t *testing.T) {
	failing := engine.Func(func(context.Context, engine.Document, types.LintConfig) ([]types.Issue, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		name         string
		config       string
		eng          engine.Engine
		reportErrors *bool
		perDocument  bool
		expectCode   string
		expectTarget any
	}{
		{
			name:         "config parse error",
			config:       `{"indent-width": `,
			eng:          scenarioEngine(),
			expectCode:   "config-error",
			expectTarget: new(*ConfigParseError),
		},
		{
			name:         "engine error",
			eng:          failing,
			expectCode:   "lint-error",
			expectTarget: new(*EngineError),
		},
		{
			name:         "config parse error without reporting",
			config:       `{`,
			eng:          scenarioEngine(),
			reportErrors: boolPtr(false),
			expectTarget: new(*ConfigParseError),
		},
		{
			name:         "engine error without reporting",
			eng:          failing,
			reportErrors: boolPtr(false),
			expectTarget: new(*EngineError),
		},
		{
			name:         "config parse error without reporting in document settings",
			config:       `{"indent-width": `,
			eng:          scenarioEngine(),
			reportErrors: boolPtr(false),
			perDocument:  true,
			expectTarget: new(*ConfigParseError),
		},
		{
			name:         "engine error without reporting in document settings",
			eng:          failing,
			reportErrors: boolPtr(false),
			perDocument:  true,
			expectTarget: new(*EngineError),
		},
		{
			name:         "config parse error reported in document settings",
			config:       `{"indent-width": `,
			eng:          scenarioEngine(),
			reportErrors: boolPtr(true),
			perDocument:  true,
			expectCode:   "config-error",
			expectTarget: new(*ConfigParseError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.config != "" {
				writeFile(t, filepath.Join(dir, types.ConfigFileName), tt.config)
			}

			h := NewHandler(tt.eng)
			settings := types.DefaultSettings()
			settings.ReportErrors = tt.reportErrors
			if tt.perDocument {
				h.Session().SetCapabilities(Capabilities{Configuration: true})
				h.SetSettingsFetcher(func(context.Context, types.DocumentURI) (types.Settings, error) {
					return settings, nil
				})
			} else {
				h.UpdateConfiguration(&types.Config{Htmllint: &settings})
			}
			uri := openTestFile(t, h, dir, "doc.html", scenarioText)

			published, err := h.publishedForTest(t, uri)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.expectTarget))

			if tt.expectCode == "" {
				assert.Empty(t, published, "previous diagnostics are kept")
				return
			}

			require.Len(t, published, 1)
			require.Len(t, published[0].Diagnostics, 1)
			d := published[0].Diagnostics[0]
			require.NotNil(t, d.Code)
			assert.Equal(t, tt.expectCode, *d.Code)
			assert.Equal(t, 0, d.Range.Start.Line)
			assert.Equal(t, types.DiagError, d.Severity)
			assert.NotEmpty(t, d.Message)
		})
	}
}

func TestRunValidationDropsStaleVersions(t *testing.T) {
	h := NewHandler(nil)
	uri := openTestFile(t, h, t.TempDir(), "doc.html", "old")
	h.engine = engine.Func(func(ctx context.Context, doc engine.Document, config types.LintConfig) ([]types.Issue, error) {
		if doc.Text == "old" {
			// a newer version arrives while the old one is linted
			v := 2
			require.NoError(t, h.UpdateFile(uri, "new", &v))
		}
		return []types.Issue{{Code: "E001", Data: types.IssueData{Attribute: "style"}}}, nil
	})

	published, err := h.publishedForTest(t, uri)
	require.NoError(t, err)
	assert.Empty(t, published)

	published, err = h.publishedForTest(t, uri)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, 2, published[0].Version)
}

func TestRunValidationDropsClosedDocuments(t *testing.T) {
	var h *LangHandler
	h = NewHandler(engine.Func(func(ctx context.Context, doc engine.Document, config types.LintConfig) ([]types.Issue, error) {
		for _, uri := range h.OpenDocuments() {
			require.NoError(t, h.CloseFile(uri))
		}
		return nil, nil
	}))
	uri := openTestFile(t, h, t.TempDir(), "doc.html", "<p></p>")

	published, err := h.publishedForTest(t, uri)
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestRunValidationUnknownDocument(t *testing.T) {
	h := NewHandler(nil)
	_, err := h.publishedForTest(t, "file:///nope.html")
	assert.Error(t, err)

	_, err = h.Validate(t.Context(), "file:///nope.html")
	assert.Error(t, err)
}

func TestValidateCapsNumberOfProblems(t *testing.T) {
	h := NewHandler(engine.Func(func(context.Context, engine.Document, types.LintConfig) ([]types.Issue, error) {
		issues := make([]types.Issue, 0)
		for i := range 10 {
			issues = append(issues, types.Issue{Code: "E036", Line: i, Data: types.IssueData{Width: 4}})
		}
		return issues, nil
	}))
	uri := openTestFile(t, h, t.TempDir(), "doc.html", "")

	settings := types.DefaultSettings()
	settings.MaxNumberOfProblems = 3
	h.UpdateConfiguration(&types.Config{Htmllint: &settings})
	result, err := h.Validate(t.Context(), uri)
	require.NoError(t, err)
	assert.Len(t, result.Diagnostics, 3)

	settings.MaxNumberOfProblems = 0
	h.UpdateConfiguration(&types.Config{Htmllint: &settings})
	result, err = h.Validate(t.Context(), uri)
	require.NoError(t, err)
	assert.Len(t, result.Diagnostics, 10)
}

func TestSettingsChangeRefetchesForOpenDocuments(t *testing.T) {
	h := NewHandler(scenarioEngine())
	h.Session().SetCapabilities(Capabilities{Configuration: true})
	f := newCountingFetcher()
	h.SetSettingsFetcher(f.fetch)

	dir := t.TempDir()
	a := openTestFile(t, h, dir, "a.html", scenarioText)
	b := openTestFile(t, h, dir, "b.html", scenarioText)

	validateAll := func() {
		for _, uri := range h.OpenDocuments() {
			_, err := h.publishedForTest(t, uri)
			require.NoError(t, err)
		}
	}

	validateAll()
	validateAll()
	assert.Equal(t, 1, f.count(a))
	assert.Equal(t, 1, f.count(b))

	h.UpdateConfiguration(&types.Config{})
	validateAll()
	assert.Equal(t, 2, f.count(a))
	assert.Equal(t, 2, f.count(b))

	require.NoError(t, h.CloseFile(b))
	validateAll()
	assert.Equal(t, 2, f.count(a))
	assert.Equal(t, []types.DocumentURI{a}, h.OpenDocuments())
}

func TestValidateSettingsFetchError(t *testing.T) {
	h := NewHandler(scenarioEngine())
	h.Session().SetCapabilities(Capabilities{Configuration: true})
	h.SetSettingsFetcher(func(context.Context, types.DocumentURI) (types.Settings, error) {
		return types.Settings{}, errors.New("no answer")
	})
	uri := openTestFile(t, h, t.TempDir(), "doc.html", scenarioText)

	result, err := h.Validate(t.Context(), uri)
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.ErrorContains(t, result.Err, "no answer")
}

func boolPtr(v bool) *bool { return &v }
