package core

import (
	"context"
	"errors"
	"sync"

	"github.com/konradmalik/htmllint-ls/types"
)

// Capabilities are the client features learned from the initialize request.
type Capabilities struct {
	Configuration            bool
	WorkspaceFolders         bool
	RelatedInformation       bool
	WatchedFilesRegistration bool
}

func CapabilitiesFromClient(c types.ClientCapabilities) Capabilities {
	var caps Capabilities
	if w := c.Workspace; w != nil {
		caps.Configuration = w.Configuration
		caps.WorkspaceFolders = w.WorkspaceFolders
		caps.WatchedFilesRegistration = w.DidChangeWatchedFiles != nil && w.DidChangeWatchedFiles.DynamicRegistration
	}
	if td := c.TextDocument; td != nil && td.PublishDiagnostics != nil {
		caps.RelatedInformation = td.PublishDiagnostics.RelatedInformation
	}
	return caps
}

// SettingsFetcher asks the client for the settings of one document.
type SettingsFetcher func(ctx context.Context, uri types.DocumentURI) (types.Settings, error)

type settingsEntry struct {
	done     chan struct{}
	settings types.Settings
	err      error
}

// SessionState holds the per server caches: document settings and client capabilities.
type SessionState struct {
	mu        sync.Mutex
	capsSet   bool
	caps      Capabilities
	global    types.Settings
	documents map[types.DocumentURI]*settingsEntry
}

func NewSessionState() *SessionState {
	return &SessionState{
		global:    types.DefaultSettings(),
		documents: make(map[types.DocumentURI]*settingsEntry),
	}
}

// SetCapabilities records the client capabilities. Only the first call has an effect.
func (s *SessionState) SetCapabilities(caps Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capsSet {
		return
	}
	s.caps = caps
	s.capsSet = true
}

func (s *SessionState) Capabilities() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *SessionState) GlobalSettings() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

// DocumentSettings returns the cached settings for uri, fetching them on first use.
// Concurrent callers for the same uri share one fetch. Failed fetches are not cached.
func (s *SessionState) DocumentSettings(ctx context.Context, uri types.DocumentURI, fetch SettingsFetcher) (types.Settings, error) {
	if !s.Capabilities().Configuration || fetch == nil {
		return s.GlobalSettings(), nil
	}

	for {
		s.mu.Lock()
		entry, ok := s.documents[uri]
		if !ok {
			entry = &settingsEntry{done: make(chan struct{})}
			s.documents[uri] = entry
		}
		s.mu.Unlock()

		if !ok {
			entry.settings, entry.err = fetch(ctx, uri)
			if entry.err != nil {
				s.mu.Lock()
				if s.documents[uri] == entry {
					delete(s.documents, uri)
				}
				s.mu.Unlock()
			}
			close(entry.done)
		}

		select {
		case <-entry.done:
			// the caller that owned the fetch was cancelled, try again with ours
			if ok && entry.err != nil && ctx.Err() == nil &&
				(errors.Is(entry.err, context.Canceled) || errors.Is(entry.err, context.DeadlineExceeded)) {
				continue
			}
			return entry.settings, entry.err
		case <-ctx.Done():
			return types.Settings{}, ctx.Err()
		}
	}
}

func (s *SessionState) OnDocumentClosed(uri types.DocumentURI) {
	s.mu.Lock()
	delete(s.documents, uri)
	s.mu.Unlock()
}

// OnGlobalSettingsChanged drops every cached document setting. Clients without
// configuration requests push their settings here, nil resets to the defaults.
func (s *SessionState) OnGlobalSettingsChanged(settings *types.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.documents)
	if s.caps.Configuration {
		return
	}
	if settings == nil {
		s.global = types.DefaultSettings()
		return
	}
	s.global = *settings
}

func (s *SessionState) cachedSettings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}
