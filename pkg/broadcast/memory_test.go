package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroadcaster_Subscribe(t *testing.T) {
	t.Run("registers subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](4)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		require.NotNil(t, sub)
		assert.Equal(t, 1, b.Len())
	})

	t.Run("after close returns closed subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](4)
		require.NoError(t, b.Close())

		sub := b.Subscribe(context.Background())
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		b := NewMemoryBroadcaster[string](4)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok)
	})
}

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Run("delivers to every subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](4)
		defer b.Close()

		ctx := context.Background()
		subs := []Subscriber[int]{b.Subscribe(ctx), b.Subscribe(ctx), b.Subscribe(ctx)}

		require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 7}))

		for _, sub := range subs {
			msg := <-sub.Receive(ctx)
			assert.Equal(t, 7, msg.Data)
		}
	})

	t.Run("full buffer drops message but keeps subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](1)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 1}))
		require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 2}))

		assert.Equal(t, uint64(1), sub.Dropped())
		assert.Equal(t, 1, b.Len())
		assert.Equal(t, 1, (<-sub.Receive(ctx)).Data)

		require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 3}))
		assert.Equal(t, 3, (<-sub.Receive(ctx)).Data)
	})

	t.Run("prunes subscribers closed by the consumer", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](1)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		require.NoError(t, sub.Close())
		require.NoError(t, b.Broadcast(context.Background(), Message[int]{Data: 1}))

		assert.Equal(t, 0, b.Len())
	})

	t.Run("no-op after close", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](1)
		require.NoError(t, b.Close())
		assert.NoError(t, b.Broadcast(context.Background(), Message[int]{Data: 1}))
	})
}

func TestMemoryBroadcaster_Close(t *testing.T) {
	b := NewMemoryBroadcaster[string](2)
	sub := b.Subscribe(context.Background())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, ok := <-sub.Receive(context.Background())
	assert.False(t, ok)
	assert.NoError(t, sub.Close())
}

func TestMemoryBroadcaster_Concurrent(t *testing.T) {
	b := NewMemoryBroadcaster[int](128)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe(ctx)
			for i := range 50 {
				_ = b.Broadcast(ctx, Message[int]{Data: i})
			}
			_ = sub.Close()
		}()
	}
	wg.Wait()

	require.NoError(t, b.Broadcast(ctx, Message[int]{Data: -1}))
	assert.Equal(t, 0, b.Len())
}
