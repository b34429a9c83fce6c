package registry

import (
	"errors"
	"net/url"
	"strings"
	"sync"
)

// Platform represents a connector that owns a set of web hostnames.
type Platform interface {
	// Name returns the platform's unique identifier.
	Name() string

	// Hostnames returns the hostnames whose URLs the platform handles.
	Hostnames() []string
}

// Registry manages registered Platform implementations in a thread-safe manner.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]Platform
	hosts     map[string]Platform
	// Order preserving list for GetAll to maintain registration order
	ordered []Platform
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		platforms: make(map[string]Platform),
		hosts:     make(map[string]Platform),
		ordered:   make([]Platform, 0),
	}
}

// Register adds a platform to the registry.
// Returns an error if the platform is nil, has an empty name, is already
// registered, or claims a hostname owned by another platform.
func (r *Registry) Register(p Platform) error {
	if p == nil {
		return errors.New("platform cannot be nil")
	}

	name := p.Name()
	if name == "" {
		return errors.New("platform name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.platforms[name]; exists {
		return errors.New("platform already registered: " + name)
	}

	hosts := make([]string, 0, len(p.Hostnames()))
	for _, host := range p.Hostnames() {
		host = NormalizeHost(host)
		if host == "" {
			continue
		}
		if owner, exists := r.hosts[host]; exists {
			return errors.New("hostname " + host + " already owned by " + owner.Name())
		}
		hosts = append(hosts, host)
	}

	for _, host := range hosts {
		r.hosts[host] = p
	}
	r.platforms[name] = p
	r.ordered = append(r.ordered, p)

	return nil
}

// Get retrieves a platform by name.
// Returns the platform and true if found, or nil and false if not found.
func (r *Registry) Get(name string) (Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.platforms[name]
	return p, ok
}

// GetAll returns all registered platforms.
// The returned slice is a copy and safe for concurrent use.
func (r *Registry) GetAll() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Platform, 0, len(r.ordered))
	result = append(result, r.ordered...)

	return result
}

// MatchURL finds the platform owning the hostname of rawURL.
// Returns nil and false if the URL cannot be parsed or no platform owns its host.
func (r *Registry) MatchURL(rawURL string) (Platform, bool) {
	host, ok := HostOf(rawURL)
	if !ok {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.hosts[host]
	return p, ok
}

// Reset clears all registered platforms.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms = make(map[string]Platform)
	r.hosts = make(map[string]Platform)
	r.ordered = r.ordered[:0]
}

// HostOf extracts the normalized hostname of an absolute http(s) URL.
func HostOf(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	host := NormalizeHost(parsed.Hostname())
	return host, host != ""
}

// NormalizeHost lowercases a hostname and strips a leading "www.".
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

// Default is the global default registry instance.
var Default = New()
