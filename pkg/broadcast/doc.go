// Package broadcast provides typed one-to-many message fan-out.
//
// MemoryBroadcaster delivers each message to every subscriber's buffered
// channel. When a buffer is full the message is dropped for that subscriber
// and counted in Dropped; the subscriber stays registered. This suits change
// signals where a consumer re-reads current state on any message.
//
//	b := broadcast.NewMemoryBroadcaster[string](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	_ = b.Broadcast(ctx, broadcast.Message[string]{Data: "changed"})
//	msg := <-sub.Receive(ctx)
//
// Subscriptions end when their context is done, when Close is called on the
// subscriber, or when the broadcaster is closed.
package broadcast
