package plugins

import (
	"fmt"
	"sort"
	"sync"

	"github.com/liuran001/YandexMusic-Go/bot/config"
	logpkg "github.com/liuran001/YandexMusic-Go/bot/logger"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
	"github.com/prometheus/client_golang/prometheus"
)

// Contribution describes the components a plugin can provide.
type Contribution struct {
	Streamer platform.Streamer
	// Closer releases plugin resources on shutdown. Optional.
	Closer func() error
}

// Deps carries host services a plugin factory may use.
type Deps struct {
	Config *config.Config
	Logger *logpkg.Logger
	// Registerer receives plugin metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// Factory creates a plugin contribution from host dependencies.
type Factory func(deps Deps) (*Contribution, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register registers a plugin factory by name.
func Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("plugin name required")
	}
	if factory == nil {
		return fmt.Errorf("plugin factory required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}
	factories[name] = factory
	return nil
}

// Get returns a registered factory by name.
func Get(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := factories[name]
	return factory, ok
}

// Names returns all registered plugin names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	nameList := make([]string, 0, len(factories))
	for name := range factories {
		nameList = append(nameList, name)
	}
	sort.Strings(nameList)
	return nameList
}

// Enabled reports whether a plugin should be loaded. A plugin is enabled
// unless its config section sets enabled to false.
func Enabled(cfg *config.Config, name string) bool {
	if cfg == nil || !cfg.HasPluginKey(name, "enabled") {
		return true
	}
	return cfg.GetPluginBool(name, "enabled")
}

// Load builds every registered and enabled plugin and registers its streamer
// with manager. Contributions are returned in name order so callers can close them.
func Load(deps Deps, manager platform.Manager) ([]*Contribution, error) {
	var loaded []*Contribution
	for _, name := range Names() {
		if !Enabled(deps.Config, name) {
			if deps.Logger != nil {
				deps.Logger.Info("plugin disabled", "plugin", name)
			}
			continue
		}
		factory, _ := Get(name)
		contrib, err := factory(deps)
		if err != nil {
			return loaded, fmt.Errorf("plugin %s: %w", name, err)
		}
		if contrib == nil || contrib.Streamer == nil {
			continue
		}
		manager.Register(contrib.Streamer)
		loaded = append(loaded, contrib)
		if deps.Logger != nil {
			deps.Logger.Debug("plugin loaded", "plugin", name)
		}
	}
	return loaded, nil
}
