package platform

import "context"

// Streamer defines the contract every music service connector implements.
// The host resolves URLs and queries through it and receives canonical objects.
//
// Streamer implementations should be safe for concurrent use by multiple goroutines.
type Streamer interface {
	// Name returns the connector identifier (e.g., "yandex").
	// This name should be lowercase and URL-safe.
	Name() string

	// Hostnames returns the web hostnames whose URLs this connector understands.
	Hostnames() []string

	// Search looks up tracks, albums and artists matching query.
	// An empty result is not an error; every category is then an empty slice.
	Search(ctx context.Context, query string, limit int) (*SearchResults, error)

	// GetByURL resolves a service URL and fetches the entity it points to.
	// Track and episode results carry a lazy GetStream accessor.
	GetByURL(ctx context.Context, url string) (*GetByURLResult, error)

	// GetTypeFromURL classifies a service URL. It may issue network requests.
	GetTypeFromURL(ctx context.Context, url string) (ItemType, error)

	// GetAccountInfo reports the state of the configured account.
	// Failures are reported as an invalid account, never as an error.
	GetAccountInfo(ctx context.Context) Account
}

// Manager provides a registry for multiple connector implementations and
// routes URLs to the connector owning their hostname.
type Manager interface {
	// Register adds a connector to the manager.
	// If a connector with the same name already exists, it will be replaced.
	Register(streamer Streamer)

	// Get retrieves a connector by name.
	// Returns nil if no connector with that name is registered.
	Get(name string) Streamer

	// List returns all registered connector names.
	List() []string

	// MatchURL returns the connector that recognizes the URL hostname.
	MatchURL(url string) (Streamer, bool)

	// ResolveAlias resolves a connector alias to its canonical name.
	ResolveAlias(alias string) (name string, matched bool)

	// Meta returns metadata for a connector name.
	Meta(name string) (Meta, bool)
}
