// Package task runs delayed, cancellable work and exposes its result as a future.
package task

import (
	"context"
	"sync"
	"time"
)

// Task is the pending result of work started with Go or After.
type Task[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	once sync.Once
	val  T
	err  error
}

// Go starts fn in a goroutine. The context passed to fn is cancelled by
// Cancel or when ctx ends.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		val, err := fn(ctx)
		t.finish(val, err)
	}()
	return t
}

// After runs fn once delay has elapsed. If the task is cancelled first, fn
// never runs and the task fails with the context error.
func After[T any](ctx context.Context, delay time.Duration, fn func(context.Context) (T, error)) *Task[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		if err := Sleep(ctx, delay); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	})
}

// Done is closed once the task has a result.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the task. It is safe to call more than once.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx ends. A ctx ending does not
// cancel the task itself.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while running.
func (t *Task[T]) Result() (val T, err error, ok bool) {
	select {
	case <-t.done:
		return t.val, t.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

func (t *Task[T]) finish(val T, err error) {
	t.once.Do(func() {
		t.val = val
		t.err = err
		close(t.done)
	})
}

// Sleep waits for d or until ctx ends, whichever is first.
func Sleep(ctx context.Context, d time.Duration) error {
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
