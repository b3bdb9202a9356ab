package resilience

import (
	"context"

	"github.com/wvoelker/larynx/pkg/provider/s2s"
)

// GuardedProvider wraps an s2s.Provider so that Connect calls flow through a
// circuit breaker. When the AI endpoint has failed repeatedly, new calls fail
// fast with [ErrCircuitOpen] instead of dialing a dead endpoint.
//
// Only session establishment is guarded. Once a session is connected, its
// audio path talks to the provider directly; a mid-call failure ends that
// call and counts against the breaker only if the next Connect fails too.
type GuardedProvider struct {
	inner   s2s.Provider
	breaker *CircuitBreaker
}

var _ s2s.Provider = (*GuardedProvider)(nil)

// Guard wraps p with a breaker named after the provider.
func Guard(p s2s.Provider, cfg CircuitBreakerConfig) *GuardedProvider {
	return &GuardedProvider{
		inner:   p,
		breaker: NewCircuitBreaker(cfg),
	}
}

// Connect establishes a session through the breaker.
func (g *GuardedProvider) Connect(ctx context.Context, cfg s2s.SessionConfig) (s2s.SessionHandle, error) {
	var handle s2s.SessionHandle
	err := g.breaker.Execute(func() error {
		var err error
		handle, err = g.inner.Connect(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Capabilities reports the wrapped provider's capabilities.
func (g *GuardedProvider) Capabilities() s2s.Capabilities {
	return g.inner.Capabilities()
}

// Breaker exposes the underlying breaker for health reporting.
func (g *GuardedProvider) Breaker() *CircuitBreaker {
	return g.breaker
}
