package channel_utils

import (
	"context"
	"fmt"
	"story-video-pipeline/application/ports/outbound"
)

// Future is the result of a task handed to a TaskDispatcher. It settles exactly once.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) settle(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Submit runs fn on the dispatcher. A rejected submission and a panic inside fn
// both settle the future with an error instead of escaping to the caller.
func Submit[T any](dispatcher outbound.TaskDispatcher, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	err := dispatcher.Submit(func() {
		var (
			value T
			err   error
		)
		defer func() {
			if p := recover(); p != nil {
				var zero T
				f.settle(zero, panicError(p))
				return
			}
			f.settle(value, err)
		}()
		value, err = fn()
	})
	if err != nil {
		var zero T
		f.settle(zero, err)
	}
	return f
}

func Completed[T any](value T) *Future[T] {
	f := newFuture[T]()
	f.settle(value, nil)
	return f
}

func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await is Wait bounded by ctx. The task itself keeps running when ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func panicError(p interface{}) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("task panicked: %w", err)
	}
	return fmt.Errorf("task panicked: %v", p)
}
