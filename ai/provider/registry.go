package provider

import (
	"sync"

	"github.com/complyforge/complyforge/ai/breaker"
	"github.com/complyforge/complyforge/errors"
)

// Registry holds the process-wide provider adapters and their circuit
// breakers. It is an explicit object owned by the engine and passed by
// injection, never a module-level global, so tests can substitute fakes
// per test run.
//
// Registration order defines the fallback chain.
type Registry struct {
	mu          sync.RWMutex
	generators  map[ID]Generator
	breakers    map[ID]*breaker.Breaker
	order       []ID
	breakerOpts breaker.Options
}

// NewRegistry creates an empty registry. All breakers created through
// Register share opts.
func NewRegistry(opts breaker.Options) *Registry {
	return &Registry{
		generators:  make(map[ID]Generator),
		breakers:    make(map[ID]*breaker.Breaker),
		breakerOpts: opts,
	}
}

// Register adds a provider adapter and creates its breaker. Returns an
// error if the provider is already registered.
func (r *Registry) Register(gen Generator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := gen.ID()
	if _, exists := r.generators[id]; exists {
		return errors.Newf("provider already registered: %s", id)
	}

	r.generators[id] = gen
	r.breakers[id] = breaker.New(string(id), r.breakerOpts)
	r.order = append(r.order, id)
	return nil
}

// Generator returns the adapter for a provider, or nil.
func (r *Registry) Generator(id ID) Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generators[id]
}

// Breaker returns the breaker for a provider, or nil.
func (r *Registry) Breaker(id ID) *breaker.Breaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[id]
}

// FallbackChain returns the registered providers in registration order.
func (r *Registry) FallbackChain() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := make([]ID, len(r.order))
	copy(chain, r.order)
	return chain
}
