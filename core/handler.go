package core

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/konradmalik/htmllint-ls/engine"
	"github.com/konradmalik/htmllint-ls/types"
)

type LangHandler struct {
	mu       sync.RWMutex
	files    map[types.DocumentURI]*fileRef
	RootPath string

	session       *SessionState
	resolver      *ConfigResolver
	engine        engine.Engine
	fetchSettings SettingsFetcher
}

type fileRef struct {
	Version            int
	NormalizedFilename string
	LanguageID         string
	Text               string
	Uri                types.DocumentURI
}

func NewHandler(eng engine.Engine) *LangHandler {
	if eng == nil {
		eng = engine.NewNative()
	}
	return &LangHandler{
		files:    make(map[types.DocumentURI]*fileRef),
		session:  NewSessionState(),
		resolver: NewConfigResolver(),
		engine:   eng,
	}
}

func (h *LangHandler) Session() *SessionState {
	return h.session
}

// SetSettingsFetcher sets how per document settings are requested from the client.
func (h *LangHandler) SetSettingsFetcher(fetch SettingsFetcher) {
	h.mu.Lock()
	h.fetchSettings = fetch
	h.mu.Unlock()
}

func (h *LangHandler) Initialize(params types.InitializeParams) (types.InitializeResult, error) {
	rootURI := params.RootURI
	if rootURI == "" && len(params.WorkspaceFolders) > 0 {
		rootURI = params.WorkspaceFolders[0].URI
	}
	if rootURI != "" {
		rootPath, err := PathFromURI(rootURI)
		if err != nil {
			return types.InitializeResult{}, err
		}
		h.mu.Lock()
		h.RootPath = filepath.Clean(rootPath)
		h.mu.Unlock()
	}

	h.session.SetCapabilities(CapabilitiesFromClient(params.Capabilities))
	if opts := params.InitializationOptions; opts != nil && opts.Htmllint != nil {
		h.session.OnGlobalSettingsChanged(opts.Htmllint)
	}

	return types.InitializeResult{
		Capabilities: types.ServerCapabilities{
			PositionEncoding: types.UTF16,
			TextDocumentSync: types.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    types.TDSKFull,
				Save:      true,
			},
			CompletionProvider: &types.CompletionOptions{
				ResolveProvider: true,
			},
			Workspace: &types.WorkspaceServerCapabilities{
				WorkspaceFolders: &types.WorkspaceFoldersServerCapabilities{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
	}, nil
}

// UpdateConfiguration applies new global settings. The cached document settings are dropped.
func (h *LangHandler) UpdateConfiguration(config *types.Config) {
	var settings *types.Settings
	if config != nil {
		settings = config.Htmllint
	}
	h.session.OnGlobalSettingsChanged(settings)
}

func (h *LangHandler) CloseFile(uri types.DocumentURI) error {
	h.mu.Lock()
	delete(h.files, uri)
	h.mu.Unlock()

	h.session.OnDocumentClosed(uri)
	return nil
}

func (h *LangHandler) OpenFile(uri types.DocumentURI, languageID string, version int, text string) error {
	// untitled documents have no path, they are linted with an empty configuration
	fname, _ := normalizedFilenameFromUri(uri)

	f := &fileRef{
		Text:               text,
		LanguageID:         languageID,
		Version:            version,
		NormalizedFilename: fname,
		Uri:                uri,
	}

	h.mu.Lock()
	h.files[uri] = f
	h.mu.Unlock()

	return nil
}

func (h *LangHandler) UpdateFile(uri types.DocumentURI, text string, version *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.files[uri]
	if !ok {
		return fmt.Errorf("document not found: %v", uri)
	}
	updated := *f
	updated.Text = text
	if version != nil {
		updated.Version = *version
	}
	h.files[uri] = &updated

	return nil
}

// OpenDocuments returns the uris of all open documents in a stable order.
func (h *LangHandler) OpenDocuments() []types.DocumentURI {
	h.mu.RLock()
	defer h.mu.RUnlock()

	uris := make([]types.DocumentURI, 0, len(h.files))
	for uri := range h.files {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}

func (h *LangHandler) snapshot(uri types.DocumentURI) (fileRef, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	f, ok := h.files[uri]
	if !ok {
		return fileRef{}, false
	}
	return *f, true
}

// isCurrent reports whether the document is still open at the given version.
func (h *LangHandler) isCurrent(uri types.DocumentURI, version int) bool {
	f, ok := h.snapshot(uri)
	return ok && f.Version == version
}
