package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// RetryPolicy retries an operation with bounded exponential backoff.
// Used for provider fetches and collaborator batch calls.
type RetryPolicy struct {
	// Attempts is the total attempt ceiling, including the first try.
	Attempts int

	// BaseDelay is the delay before the second attempt; it doubles
	// after every failure.
	BaseDelay time.Duration
}

// DefaultRetryPolicy is the fixed policy from the error handling
// design: three attempts, starting at half a second.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond}

// Do runs fn until it succeeds or the attempt ceiling is reached.
// Timeouts are not retried: a collaborator that exceeded its deadline
// fails the task and the caller resubmits. Context cancellation stops
// the loop immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.Canceled) {
			return err
		}
	}
	return err
}
