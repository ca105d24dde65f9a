package modelstore

import (
	"context"
	"errors"

	"github.com/mbd888/sellerrisk/internal/circuitbreaker"
)

// GuardedBlobs trips a circuit breaker when a remote backend keeps failing.
// While the circuit is open Get and Put return circuitbreaker.ErrOpen at
// once, so predictions fall back to the neutral score without waiting on
// network timeouts.
type GuardedBlobs struct {
	inner   Blobs
	name    string
	breaker *circuitbreaker.Breaker
}

// Guard wraps inner. name is the breaker key and metric label.
func Guard(inner Blobs, name string, breaker *circuitbreaker.Breaker) *GuardedBlobs {
	return &GuardedBlobs{inner: inner, name: name, breaker: breaker}
}

// backendFailure reports whether err says something about backend health.
// A missing artifact or a cancelled request does not.
func backendFailure(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, ErrInvalidSeller)
}

func (g *GuardedBlobs) Put(ctx context.Context, key string, data []byte) error {
	return g.breaker.Do(g.name, func() error {
		return g.inner.Put(ctx, key, data)
	}, backendFailure)
}

func (g *GuardedBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.breaker.Do(g.name, func() error {
		var err error
		data, err = g.inner.Get(ctx, key)
		return err
	}, backendFailure)
	return data, err
}

// Ping bypasses the breaker so health checks see the backend itself.
func (g *GuardedBlobs) Ping(ctx context.Context) error {
	if p, ok := g.inner.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State reports the breaker state for this backend.
func (g *GuardedBlobs) State() circuitbreaker.State {
	return g.breaker.State(g.name)
}
