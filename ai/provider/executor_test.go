package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyforge/complyforge/ai/breaker"
	"github.com/complyforge/complyforge/errors"
)

// fakeGenerator is a scriptable provider adapter for executor tests.
type fakeGenerator struct {
	id    ID
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Result{
		Content:      "generated by " + string(f.id),
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (f *fakeGenerator) ID() ID { return f.id }

func newTestExecutor(t *testing.T, gens ...*fakeGenerator) (*Executor, *Registry) {
	t.Helper()
	registry := NewRegistry(breaker.DefaultOptions())
	for _, g := range gens {
		require.NoError(t, registry.Register(g))
	}
	return NewExecutor(registry, time.Second, nil, nil), registry
}

func TestExecuteUsesSelectedProvider(t *testing.T) {
	anthropic := &fakeGenerator{id: Anthropic}
	openai := &fakeGenerator{id: OpenAI}
	exec, _ := newTestExecutor(t, anthropic, openai)

	result, used, err := exec.Execute(context.Background(), OpenAI, Request{UserPrompt: "draft"})

	require.NoError(t, err)
	assert.Equal(t, OpenAI, used)
	assert.Equal(t, "generated by openai", result.Content)
	assert.Equal(t, 0, anthropic.calls)
	assert.Equal(t, 1, openai.calls)
}

func TestExecuteAutoFollowsRegistrationOrder(t *testing.T) {
	anthropic := &fakeGenerator{id: Anthropic}
	openai := &fakeGenerator{id: OpenAI}
	exec, _ := newTestExecutor(t, anthropic, openai)

	_, used, err := exec.Execute(context.Background(), Auto, Request{UserPrompt: "draft"})

	require.NoError(t, err)
	assert.Equal(t, Anthropic, used)
}

func TestExecuteFallsBackOnCallFailure(t *testing.T) {
	anthropic := &fakeGenerator{id: Anthropic, err: errors.New("upstream 500")}
	openai := &fakeGenerator{id: OpenAI}
	exec, registry := newTestExecutor(t, anthropic, openai)

	result, used, err := exec.Execute(context.Background(), Anthropic, Request{UserPrompt: "draft"})

	require.NoError(t, err)
	assert.Equal(t, OpenAI, used)
	assert.Equal(t, "generated by openai", result.Content)
	assert.Equal(t, 1, anthropic.calls)
	// The failed attempt counted against the failing provider's breaker.
	assert.Equal(t, 1, registry.Breaker(Anthropic).ConsecutiveFailures())
	assert.Equal(t, 0, registry.Breaker(OpenAI).ConsecutiveFailures())
}

func TestExecuteOpenBreakerSkipsWithoutNetworkAttempt(t *testing.T) {
	anthropic := &fakeGenerator{id: Anthropic}
	openai := &fakeGenerator{id: OpenAI}
	exec, registry := newTestExecutor(t, anthropic, openai)

	br := registry.Breaker(Anthropic)
	for i := 0; i < 5; i++ {
		br.RecordFailure()
	}
	require.Equal(t, breaker.StateOpen, br.State())

	result, used, err := exec.Execute(context.Background(), Anthropic, Request{UserPrompt: "draft"})

	require.NoError(t, err)
	assert.Equal(t, OpenAI, used)
	assert.NotNil(t, result)
	// No network attempt against the open provider, and the rejection did
	// not grow its failure count.
	assert.Equal(t, 0, anthropic.calls)
	assert.Equal(t, 5, br.ConsecutiveFailures())
}

func TestExecuteExhaustedChainFailsUnit(t *testing.T) {
	anthropic := &fakeGenerator{id: Anthropic, err: errors.New("upstream 500")}
	openai := &fakeGenerator{id: OpenAI, err: errors.New("timeout")}
	gemini := &fakeGenerator{id: Gemini, err: errors.New("quota exceeded")}
	exec, _ := newTestExecutor(t, anthropic, openai, gemini)

	result, used, err := exec.Execute(context.Background(), Auto, Request{UserPrompt: "draft"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProviderAvailable)
	assert.Nil(t, result)
	assert.Equal(t, ID(""), used)
	assert.Equal(t, 1, anthropic.calls)
	assert.Equal(t, 1, openai.calls)
	assert.Equal(t, 1, gemini.calls)
}

func TestExecuteSelectedProviderNotRetried(t *testing.T) {
	anthropic := &fakeGenerator{id: Anthropic, err: errors.New("upstream 500")}
	openai := &fakeGenerator{id: OpenAI, err: errors.New("upstream 500")}
	exec, _ := newTestExecutor(t, anthropic, openai)

	_, _, err := exec.Execute(context.Background(), Anthropic, Request{UserPrompt: "draft"})

	require.ErrorIs(t, err, ErrNoProviderAvailable)
	// Selected provider appears once in the chain even though it also
	// leads the registration order.
	assert.Equal(t, 1, anthropic.calls)
	assert.Equal(t, 1, openai.calls)
}

func TestExecuteNoProvidersRegistered(t *testing.T) {
	registry := NewRegistry(breaker.DefaultOptions())
	exec := NewExecutor(registry, time.Second, nil, nil)

	_, _, err := exec.Execute(context.Background(), Auto, Request{UserPrompt: "draft"})

	assert.ErrorIs(t, err, ErrNoProviderAvailable)
}

func TestIsBreakerRejection(t *testing.T) {
	assert.True(t, IsBreakerRejection(errors.Wrap(breaker.ErrOpen, "provider anthropic cooling down")))
	assert.False(t, IsBreakerRejection(errors.New("upstream 500")))
	assert.False(t, IsBreakerRejection(nil))
}
