package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/notifysync/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("returns result", func(t *testing.T) {
		t.Parallel()
		f := async.Async(context.Background(), 42, func(_ context.Context, n int) (string, error) {
			time.Sleep(10 * time.Millisecond)
			return fmt.Sprintf("n=%d", n), nil
		})

		res, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, "n=42", res)
		assert.True(t, f.IsComplete())
	})

	t.Run("propagates error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
			return 0, boom
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("skips fn when context already canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		f := async.Async(ctx, 0, func(context.Context, int) (int, error) {
			called.Store(true)
			return 1, nil
		})

		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})

	t.Run("await is repeatable", func(t *testing.T) {
		t.Parallel()
		f := async.Async(context.Background(), "x", func(_ context.Context, s string) (string, error) {
			return s + s, nil
		})

		first, _ := f.Await()
		second, _ := f.Await()
		assert.Equal(t, first, second)
	})
}

func TestFuture_AwaitContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
		<-release
		return 7, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.AwaitContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.IsComplete())

	close(release)
	res, err := f.AwaitContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, res)
}

func TestResolvedAndRejected(t *testing.T) {
	t.Parallel()

	ok := async.Resolved("done")
	assert.True(t, ok.IsComplete())
	res, err := ok.Await()
	require.NoError(t, err)
	assert.Equal(t, "done", res)

	boom := errors.New("boom")
	failed := async.Rejected[string](boom)
	assert.True(t, failed.IsComplete())
	res, err = failed.Await()
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res)

	select {
	case <-ok.Done():
	default:
		t.Fatal("resolved future must expose a closed Done channel")
	}
}

func TestWaitAll(t *testing.T) {
	t.Parallel()

	t.Run("collects in argument order", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		delays := []time.Duration{30 * time.Millisecond, 5 * time.Millisecond, 15 * time.Millisecond}

		futures := make([]*async.Future[int], len(delays))
		for i, d := range delays {
			futures[i] = async.Async(ctx, i, func(_ context.Context, n int) (int, error) {
				time.Sleep(d)
				return n * 10, nil
			})
		}

		res, err := async.WaitAll(futures...)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 10, 20}, res)
	})

	t.Run("returns first error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		res, err := async.WaitAll(async.Resolved(1), async.Rejected[int](boom), async.Resolved(3))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, res[0])
	})

	t.Run("context bound", func(t *testing.T) {
		t.Parallel()
		never := async.Async(context.Background(), 0, func(ctx context.Context, _ int) (int, error) {
			time.Sleep(time.Second)
			return 0, nil
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := async.WaitAllContext(ctx, async.Resolved(1), never)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
