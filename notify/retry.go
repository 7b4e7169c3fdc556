package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultMaxAttempts = 4
const defaultInitialBackoff = time.Second
const defaultMaxBackoff = 4 * time.Second

// TransientSendError marks a provider failure worth retrying. Anything
// else is terminal on the first attempt.
type TransientSendError struct {
	Err error
}

func (e *TransientSendError) Error() string {
	if e == nil || e.Err == nil {
		return "notify: transient send failure"
	}
	return fmt.Sprintf("notify: transient send failure: %v", e.Err)
}

func (e *TransientSendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsTransient(err error) bool {
	var transient *TransientSendError
	return errors.As(err, &transient)
}

// RetryPolicy doubles the delay between attempts starting at Initial,
// capped at Max.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return defaultMaxAttempts
}

// NextDelay returns the pause after the given 1-based attempt.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = defaultMaxBackoff
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

// Sleeper pauses between attempts. Tests inject an instant one.
type Sleeper func(ctx context.Context, d time.Duration) error

func DefaultSleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run invokes fn until it succeeds, fails terminally, or the attempt
// ceiling is hit. It returns the attempt count alongside the final
// error.
func Run(ctx context.Context, policy RetryPolicy, sleep Sleeper, fn func(ctx context.Context) error) (int, error) {
	if fn == nil {
		return 0, fmt.Errorf("notify: retry target is required")
	}
	if sleep == nil {
		sleep = DefaultSleeper
	}
	maxAttempts := policy.maxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !IsTransient(lastErr) {
			return attempt, lastErr
		}
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, policy.NextDelay(attempt)); err != nil {
			return attempt, err
		}
	}
	return maxAttempts, lastErr
}
