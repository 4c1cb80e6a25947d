package adapters

import (
	"strings"
	"sync"

	"github.com/hostwise/nightly/internal/pms/domain"
	"github.com/hostwise/nightly/internal/pms/adapters/hostaway"
	"github.com/hostwise/nightly/internal/pms/adapters/lodgify"
)

// Registry maps provider keys to adapter factories. Keys are
// case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]domain.Factory
}

// NewRegistry returns a registry preloaded with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]domain.Factory)}
	r.Register("hostaway", hostaway.New)
	r.Register("lodgify", lodgify.New)
	return r
}

func (r *Registry) Register(name string, factory domain.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(name))] = factory
}

// New builds an adapter for the named provider.
func (r *Registry) New(name string, cfg domain.AdapterConfig) (domain.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return factory(cfg)
}

// Providers lists the registered provider keys.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
