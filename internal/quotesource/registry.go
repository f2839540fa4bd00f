package quotesource

import (
	"fmt"
	"sort"
	"sync"

	"github.com/regholl2023/minitrade/internal/config"
)

// Factory builds a backend from the application config.
type Factory func(cfg *config.Config) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. Registering a name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("quotesource: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("quotesource: Register called twice for " + name)
	}
	registry[name] = f
}

// Available lists registered source names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get builds the named source.
func Get(name string, cfg *config.Config) (*Source, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownSource, name, Available())
	}
	if cfg == nil {
		cfg = config.Default()
	}
	b, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("create source %s: %w", name, err)
	}
	return New(b), nil
}
