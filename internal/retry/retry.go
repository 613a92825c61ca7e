package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a reusable retry policy applied at the remote-call
// boundaries (embedding, index writes, generation).
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

// DefaultPolicy matches the documented defaults: 3 attempts starting
// at 500ms with a 2x multiplier and randomized jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     10 * time.Second,
	}
}

// Do runs op, retrying transient failures with exponential backoff
// until the attempt budget is spent or ctx is cancelled. The last
// error is returned.
func (p Policy) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.Multiplier = p.Multiplier
	bo.MaxInterval = p.MaxInterval

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx)
	return backoff.Retry(op, wrapped)
}
