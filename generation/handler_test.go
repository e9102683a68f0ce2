package generation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHandler is a minimal JobHandler for registry and worker tests.
type stubHandler struct {
	name string
	err  error

	mu       sync.Mutex
	executed int
}

func (h *stubHandler) Execute(ctx context.Context, job *Job) error {
	h.mu.Lock()
	h.executed++
	h.mu.Unlock()
	return h.err
}

func (h *stubHandler) executedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executed
}

func (h *stubHandler) Name() string { return h.name }

func TestHandlerRegistryRegisterAndGet(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &stubHandler{name: "generation.test"}

	require.NoError(t, registry.Register(handler))

	got := registry.Get("generation.test")
	require.NotNil(t, got)
	assert.Same(t, handler, got)
	assert.True(t, registry.Has("generation.test"))
	assert.Contains(t, registry.Names(), "generation.test")
}

func TestHandlerRegistryRejectsDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	require.NoError(t, registry.Register(&stubHandler{name: "generation.test"}))

	err := registry.Register(&stubHandler{name: "generation.test"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestHandlerRegistryUnknownHandler(t *testing.T) {
	registry := NewHandlerRegistry()

	assert.Nil(t, registry.Get("generation.missing"))
	assert.False(t, registry.Has("generation.missing"))
}

func TestRegistryExecutorDispatchesByHandlerName(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &stubHandler{name: HandlerGenerateDocuments}
	require.NoError(t, registry.Register(handler))

	executor := NewRegistryExecutor(registry)
	job, err := NewJob(HandlerGenerateDocuments, "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)

	require.NoError(t, executor.Execute(context.Background(), job))
	assert.Equal(t, 1, handler.executed)
}

func TestRegistryExecutorUnknownHandlerFails(t *testing.T) {
	executor := NewRegistryExecutor(NewHandlerRegistry())
	job, err := NewJob("generation.unknown", "acme", []string{"SOC2"}, 3, nil)
	require.NoError(t, err)

	err = executor.Execute(context.Background(), job)

	assert.Error(t, err)
}
