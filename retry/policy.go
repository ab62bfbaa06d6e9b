// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Values
	// below 1 are treated as 1.
	MaxAttempts int
	// Backoff creates the wait schedule for one Do call. Nil means no wait.
	Backoff func() backoff.BackOff
	// Retryable decides whether a failed attempt may be repeated. Nil means
	// every error is retryable.
	Retryable func(err error) bool
}

// Constant returns a backoff that always waits d.
func Constant(d time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff { return backoff.NewConstantBackOff(d) }
}

type stopError struct {
	err error
}

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop wraps err so that Do returns it without further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

type immediateError struct {
	err error
}

func (e *immediateError) Error() string { return e.err.Error() }
func (e *immediateError) Unwrap() error { return e.err }

// Immediate wraps err so that the next attempt, if any, starts without
// waiting for the backoff.
func Immediate(err error) error {
	if err == nil {
		return nil
	}
	return &immediateError{err: err}
}

// skippable lets one NextBackOff call return 0 without consuming the
// underlying schedule.
type skippable struct {
	backoff.BackOff
	skip bool
}

func (s *skippable) NextBackOff() time.Duration {
	if s.skip {
		s.skip = false
		return 0
	}
	return s.BackOff.NextBackOff()
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. The error of the last attempt is returned, with any
// Stop or Immediate wrapper removed. Backoff waits end early when ctx is done,
// in which case ctx's error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var base backoff.BackOff = &backoff.ZeroBackOff{}
	if p.Backoff != nil {
		base = p.Backoff()
	}
	schedule := &skippable{BackOff: base}
	b := backoff.WithContext(backoff.WithMaxRetries(schedule, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		var stop *stopError
		if errors.As(err, &stop) {
			return backoff.Permanent(stop.err)
		}
		var now *immediateError
		if errors.As(err, &now) {
			schedule.skip = true
			err = now.err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// Last reports whether attempt is the final one allowed by p.
func (p Policy) Last(attempt int) bool {
	return attempt >= p.MaxAttempts
}
