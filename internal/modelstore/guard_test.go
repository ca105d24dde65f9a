package modelstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/sellerrisk/internal/circuitbreaker"
)

// flakyBlobs fails every call while down is set.
type flakyBlobs struct {
	*MemoryBlobs
	down  bool
	calls int
}

var errBackendDown = errors.New("dial tcp: connection refused")

func (f *flakyBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	f.calls++
	if f.down {
		return nil, errBackendDown
	}
	return f.MemoryBlobs.Get(ctx, key)
}

func (f *flakyBlobs) Put(ctx context.Context, key string, data []byte) error {
	f.calls++
	if f.down {
		return errBackendDown
	}
	return f.MemoryBlobs.Put(ctx, key, data)
}

func TestGuardedStore_Contract(t *testing.T) {
	g := Guard(NewMemoryBlobs(), "memory", circuitbreaker.New(2, time.Hour))
	exerciseStore(t, New(g))

	// Missing artifacts and bad ids never trip the breaker.
	assert.Equal(t, circuitbreaker.StateClosed, g.State())
}

func TestGuardedStore_TripsOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	inner := &flakyBlobs{MemoryBlobs: NewMemoryBlobs(), down: true}
	g := Guard(inner, "redis", circuitbreaker.New(3, time.Hour))
	s := New(g)

	for i := 0; i < 3; i++ {
		_, err := s.LoadBundle(ctx, "S001")
		require.ErrorIs(t, err, errBackendDown)
	}
	assert.Equal(t, circuitbreaker.StateOpen, g.State())

	// Open circuit short-circuits without touching the backend.
	inner.down = false
	_, err := s.LoadBundle(ctx, "S001")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 3, inner.calls)

	// Health checks still reach the backend.
	assert.NoError(t, s.Ping(ctx))
}
