package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/complyforge/complyforge/ai/breaker"
	"github.com/complyforge/complyforge/errors"
)

// ErrNoProviderAvailable is returned when every provider in the fallback
// chain either failed or was rejected by its breaker. It fails the single
// document unit, never the process.
var ErrNoProviderAvailable = errors.New("no provider available")

// Executor runs a provider call behind the per-provider circuit breakers
// with ordered fallback. One executor is shared by all jobs; the breakers
// inside the registry carry all mutable state.
type Executor struct {
	registry    *Registry
	callTimeout time.Duration
	limiter     *rate.Limiter // optional; rate decision is made upstream, the executor only respects it
	logger      *zap.SugaredLogger
}

// NewExecutor creates an executor. limiter may be nil (tests, unthrottled
// setups).
func NewExecutor(registry *Registry, callTimeout time.Duration, limiter *rate.Limiter, logger *zap.SugaredLogger) *Executor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Executor{
		registry:    registry,
		callTimeout: callTimeout,
		limiter:     limiter,
		logger:      logger,
	}
}

// Execute attempts the selected provider first, then the remaining
// registered providers in fallback order, deduplicated against providers
// already tried for this unit of work. Each attempt has a hard timeout.
//
// A breaker-open rejection advances the chain without counting as a
// failure for the rejected provider. A call failure (timeout, network,
// non-2xx) increments that provider's failure counter and advances the
// chain. When the chain is exhausted the unit fails with
// ErrNoProviderAvailable.
func (e *Executor) Execute(ctx context.Context, selected ID, req Request) (*Result, ID, error) {
	chain := e.buildChain(selected)
	if len(chain) == 0 {
		return nil, "", errors.Wrap(ErrNoProviderAvailable, "no providers registered")
	}

	var lastErr error
	for _, id := range chain {
		gen := e.registry.Generator(id)
		br := e.registry.Breaker(id)
		if gen == nil || br == nil {
			continue
		}

		if err := br.Allow(); err != nil {
			// Rejected without a network attempt - not a new failure.
			e.logger.Debugw("Provider rejected by breaker, advancing fallback",
				"provider", id, "error", err)
			lastErr = err
			continue
		}

		result, err := e.call(ctx, gen, req)
		if err != nil {
			br.RecordFailure()
			e.logger.Warnw("Provider call failed, advancing fallback",
				"provider", id,
				"consecutive_failures", br.ConsecutiveFailures(),
				"breaker_state", br.State(),
				"error", err)
			lastErr = err
			continue
		}

		br.RecordSuccess()
		return result, id, nil
	}

	err := errors.Wrapf(ErrNoProviderAvailable, "all %d providers exhausted", len(chain))
	if lastErr != nil {
		err = errors.WithDetail(err, fmt.Sprintf("last error: %v", lastErr))
	}
	return nil, "", err
}

// call runs one provider attempt under the rate limiter and the per-call
// timeout.
func (e *Executor) call(ctx context.Context, gen Generator, req Request) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(callCtx); err != nil {
			return nil, errors.Wrap(err, "rate limit wait aborted")
		}
	}

	return gen.Generate(callCtx, req)
}

// buildChain puts the selected provider first, followed by the registered
// fallback order with duplicates removed.
func (e *Executor) buildChain(selected ID) []ID {
	seen := make(map[ID]bool)
	var chain []ID

	if selected != "" && selected != Auto {
		chain = append(chain, selected)
		seen[selected] = true
	}

	for _, id := range e.registry.FallbackChain() {
		if !seen[id] {
			chain = append(chain, id)
			seen[id] = true
		}
	}

	return chain
}

// IsBreakerRejection reports whether err came from a breaker rejecting a
// call outright rather than from a failed attempt.
func IsBreakerRejection(err error) bool {
	return errors.Is(err, breaker.ErrOpen)
}
