package async

import (
	"context"
)

// Future is the eventual result of an asynchronous computation.
// A Future completes exactly once; every Await observes the same result.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

func newFuture[U any]() *Future[U] {
	return &Future[U]{done: make(chan struct{})}
}

func (f *Future[U]) complete(res U, err error) {
	f.result = res
	f.err = err
	close(f.done)
}

// Await blocks until the computation completes and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext blocks until the computation completes or ctx is done.
// A done context does not cancel the computation itself.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the computation completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports whether the computation has finished, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async runs fn(ctx, param) in its own goroutine and returns a Future for its result.
// If ctx is already done, fn is not called and the Future completes with ctx.Err().
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := newFuture[U]()

	go func() {
		if err := ctx.Err(); err != nil {
			var zero U
			f.complete(zero, err)
			return
		}
		f.complete(fn(ctx, param))
	}()

	return f
}

// Resolved returns an already completed Future holding v.
func Resolved[U any](v U) *Future[U] {
	f := newFuture[U]()
	f.complete(v, nil)
	return f
}

// Rejected returns an already completed Future holding err.
func Rejected[U any](err error) *Future[U] {
	f := newFuture[U]()
	var zero U
	f.complete(zero, err)
	return f
}

// WaitAll waits for every future and returns their results in order.
// The first error encountered, in argument order, is returned alongside
// the results collected so far.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	for i, future := range futures {
		result, err := future.Await()
		results[i] = result
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// WaitAllContext is WaitAll bounded by ctx.
func WaitAllContext[U any](ctx context.Context, futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	for i, future := range futures {
		result, err := future.AwaitContext(ctx)
		results[i] = result
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
