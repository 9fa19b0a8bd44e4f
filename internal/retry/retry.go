// Package retry repeats operations with exponential backoff, for
// connecting to targets whose endpoint may not be up yet.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds the attempts of Do. The zero value tries once.
type Policy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int
	// Backoff is the wait before the second attempt; it doubles afterwards.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Connect is the policy used to reach serial bridges.
var Connect = Policy{
	Attempts:   5,
	Backoff:    100 * time.Millisecond,
	MaxBackoff: 2 * time.Second,
}

// Do calls fn until it succeeds, retryable reports false, the attempts are
// exhausted or ctx is done. A nil retryable retries every error.
func Do(ctx context.Context, p Policy, fn func() error, retryable func(error) bool) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(p.delay(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
			case <-t.C:
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	if attempts == 1 {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

// delay is the wait before the given attempt, attempt > 0.
func (p Policy) delay(attempt int) time.Duration {
	d := p.Backoff << (attempt - 1)
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
		d = p.MaxBackoff
	}
	return d
}
