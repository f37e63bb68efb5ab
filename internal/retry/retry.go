// Package retry provides the bounded retry-with-backoff wrapper applied to
// every paid external call.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy controls retry behavior. Zero values fall back to Default.
type Policy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Default is the policy used when a field is unset: three attempts with
// 250ms initial backoff doubling up to 2s.
var Default = Policy{
	Attempts:       3,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	Multiplier:     2,
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = Default.Attempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = Default.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = Default.MaxBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = Default.Multiplier
	}
	return p
}

// Permanent marks an error as not retryable regardless of the predicate.
type Permanent struct{ Err error }

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Do runs op up to policy.Attempts times, sleeping with exponential backoff
// between attempts. retryable decides whether an error is worth another
// attempt; a nil predicate retries everything except Permanent errors.
// Context cancellation aborts the wait immediately.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func(ctx context.Context) error) error {
	p := policy.normalized()
	backoff := p.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * p.Multiplier)
			if backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(lastErr, &perm) {
			return perm.Err
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
