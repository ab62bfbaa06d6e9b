// Package executor runs blocking library calls on a fixed set of persistent
// goroutines. Callers submit a job and wait for its result with a deadline;
// the job's context is cancelled when the caller gives up.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTimeout is returned when a job does not finish within its timeout.
	ErrTimeout = errors.New("operation timed out")
	// ErrClosed is returned for jobs submitted after Shutdown.
	ErrClosed = errors.New("executor closed")
)

type job struct {
	ctx context.Context
	run func(ctx context.Context)
}

// Executor is a bounded worker pool.
type Executor struct {
	jobs  chan job
	group errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts an executor with the given number of workers.
func New(workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		jobs: make(chan job),
	}
	for i := 0; i < workers; i++ {
		e.group.Go(e.work)
	}
	return e
}

func (e *Executor) work() error {
	for j := range e.jobs {
		// The submitter has already given up.
		if j.ctx.Err() != nil {
			continue
		}
		j.run(j.ctx)
	}
	return nil
}

func (e *Executor) submit(ctx context.Context, j job) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	select {
	case e.jobs <- j:
		return nil
	case <-ctx.Done():
		return contextError(ctx.Err())
	}
}

// Shutdown stops accepting jobs and waits for running ones to finish. It is
// safe to call more than once.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.jobs)
	}
	e.mu.Unlock()
	_ = e.group.Wait()
}

// Closed reports whether Shutdown has been called.
func (e *Executor) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

type result[T any] struct {
	val T
	err error
}

// Run executes fn on e and waits at most timeout for it. A non-positive
// timeout only bounds the call by ctx. Panics in fn are returned as errors.
func Run[T any](ctx context.Context, e *Executor, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan result[T], 1)
	j := job{
		ctx: ctx,
		run: func(ctx context.Context) {
			defer func() {
				if r := recover(); r != nil {
					done <- result[T]{err: fmt.Errorf("job panicked: %v", r)}
				}
			}()
			v, err := fn(ctx)
			done <- result[T]{val: v, err: err}
		},
	}
	if err := e.submit(ctx, j); err != nil {
		return zero, err
	}

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, contextError(ctx.Err())
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
