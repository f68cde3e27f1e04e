// Package idempotency remembers which create requests have already been
// processed, so a client that retries with the same Idempotency-Key gets the
// original result back instead of a duplicate row.
//
// A key moves through two states:
//
//	Reserve  → pending (a request is working on it)
//	Complete → done, with the id of the created resource
//
// Release drops a pending key after a failure so the client can retry.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrInFlight is returned by Reserve when another request holds the key.
var ErrInFlight = errors.New("idempotency: request with this key is still in progress")

// Store is implemented by the in-memory and Redis backends.
type Store interface {
	// Reserve claims key. It returns (0, nil) when the caller now owns the
	// key, (id, nil) when the key was already completed with id, and
	// ErrInFlight when another request owns it.
	Reserve(ctx context.Context, key string) (int64, error)
	// Complete records the result for a reserved key.
	Complete(ctx context.Context, key string, id int64) error
	// Release forgets a reserved key.
	Release(ctx context.Context, key string) error
}

// DefaultTTL bounds how long completed keys are remembered.
const DefaultTTL = 24 * time.Hour

// DefaultPendingTTL bounds how long a reservation survives without Complete
// or Release, e.g. after a crash or a recovered panic. It must outlast the
// slowest create request.
const DefaultPendingTTL = 30 * time.Second

type settings struct {
	pendingTTL time.Duration
}

type Option func(*settings)

// WithPendingTTL sets how long a reserved but unfinished key blocks
// retries. Non-positive values keep DefaultPendingTTL.
func WithPendingTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pendingTTL = d
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{pendingTTL: DefaultPendingTTL}
	for _, o := range opts {
		o(&s)
	}
	return s
}
