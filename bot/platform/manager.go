package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/liuran001/YandexMusic-Go/bot/platform/registry"
)

// DefaultManager implements the Manager interface by wrapping the registry.
// It provides a high-level API for routing URLs and queries to connectors.
type DefaultManager struct {
	registry *registry.Registry
	mu       sync.RWMutex
	// streamers maps connector name to its implementation
	streamers map[string]Streamer
	meta      map[string]Meta
	aliases   map[string]string
}

// NewManager creates a new manager instance with the default global registry.
func NewManager() *DefaultManager {
	return NewManagerWithRegistry(registry.Default)
}

// NewManagerWithRegistry creates a new manager with a custom registry.
// This is useful for testing or isolated instances.
func NewManagerWithRegistry(reg *registry.Registry) *DefaultManager {
	return &DefaultManager{
		registry:  reg,
		streamers: make(map[string]Streamer),
		meta:      make(map[string]Meta),
		aliases:   make(map[string]string),
	}
}

// Register adds a connector to the manager.
// A connector registered under an existing name replaces it for Get and Search;
// hostname routing keeps the first registration.
func (m *DefaultManager) Register(streamer Streamer) {
	if streamer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	name := streamer.Name()
	_, existed := m.streamers[name]
	m.streamers[name] = streamer

	meta := buildMeta(streamer, name)
	m.meta[name] = meta
	m.indexAliases(meta)

	if !existed {
		_ = m.registry.Register(&streamerWrapper{name: name, manager: m, hosts: streamer.Hostnames()})
	}
}

// Get retrieves a connector by name.
// Returns nil if no connector with that name is registered.
func (m *DefaultManager) Get(name string) Streamer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streamers[name]
}

// List returns all registered connector names in sorted order.
func (m *DefaultManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.streamers))
	for name := range m.streamers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatchURL returns the connector owning the URL hostname.
func (m *DefaultManager) MatchURL(url string) (Streamer, bool) {
	p, ok := m.registry.MatchURL(url)
	if !ok {
		return nil, false
	}
	wrapper, ok := p.(*streamerWrapper)
	if !ok || wrapper.manager != m {
		return nil, false
	}
	streamer := m.Get(wrapper.name)
	return streamer, streamer != nil
}

// ResolveAlias resolves a connector alias to its canonical name.
func (m *DefaultManager) ResolveAlias(alias string) (string, bool) {
	key := normalizeAlias(alias)
	if key == "" {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.streamers[key]; ok {
		return key, true
	}
	name, ok := m.aliases[key]
	return name, ok
}

// Meta returns metadata for a connector name.
func (m *DefaultManager) Meta(name string) (Meta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.meta[name]
	return meta, ok
}

func (m *DefaultManager) indexAliases(meta Meta) {
	for _, alias := range append([]string{meta.Name}, meta.Aliases...) {
		key := normalizeAlias(alias)
		if key == "" {
			continue
		}
		m.aliases[key] = meta.Name
	}
}

func buildMeta(streamer Streamer, name string) Meta {
	meta := Meta{}
	if provider, ok := streamer.(MetadataProvider); ok {
		meta = provider.Metadata()
	}
	meta.Name = name
	if meta.DisplayName == "" {
		meta.DisplayName = meta.Name
	}
	return meta
}

// GetStreamer retrieves a connector by name or alias and returns an error if not found.
func (m *DefaultManager) GetStreamer(name string) (Streamer, error) {
	if resolved, ok := m.ResolveAlias(name); ok {
		name = resolved
	}
	s := m.Get(name)
	if s == nil {
		return nil, fmt.Errorf("platform not found: %s", name)
	}
	return s, nil
}

// MustGet retrieves a connector by name or panics if not found.
// This is useful during initialization where missing connectors should fail fast.
func (m *DefaultManager) MustGet(name string) Streamer {
	s := m.Get(name)
	if s == nil {
		panic(fmt.Sprintf("platform not found: %s", name))
	}
	return s
}

// Search is a convenience method that retrieves a connector and performs a search.
func (m *DefaultManager) Search(ctx context.Context, name, query string, limit int) (*SearchResults, error) {
	s, err := m.GetStreamer(name)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, query, limit)
}

// GetByURL routes url to the connector owning its hostname and resolves it.
func (m *DefaultManager) GetByURL(ctx context.Context, url string) (*GetByURLResult, error) {
	s, ok := m.MatchURL(url)
	if !ok {
		return nil, NewUnsupportedError("platform", url)
	}
	return s.GetByURL(ctx, url)
}

// GetTypeFromURL routes url to the connector owning its hostname and classifies it.
func (m *DefaultManager) GetTypeFromURL(ctx context.Context, url string) (ItemType, error) {
	s, ok := m.MatchURL(url)
	if !ok {
		return "", NewUnsupportedError("platform", url)
	}
	return s.GetTypeFromURL(ctx, url)
}

// streamerWrapper adapts a Streamer to registry.Platform.
// It resolves through the manager so replacements stay routable.
type streamerWrapper struct {
	name    string
	hosts   []string
	manager *DefaultManager
}

// Name implements registry.Platform.
func (w *streamerWrapper) Name() string {
	return w.name
}

// Hostnames implements registry.Platform.
func (w *streamerWrapper) Hostnames() []string {
	return w.hosts
}
