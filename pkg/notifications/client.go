package notifications

import "context"

// Client is the persistence service the Store synchronizes with.
// Each call may fail independently; the Store never surfaces those failures
// to its callers.
//
// List and Create return the raw response body so the Normalizer can accept
// whichever envelope the deployment uses.
type Client interface {
	// List returns up to limit notifications, newest first.
	List(ctx context.Context, limit int) ([]byte, error)

	// Create persists a notification and returns the stored entity.
	Create(ctx context.Context, in Input) ([]byte, error)

	// Delete removes a notification by its remote id.
	Delete(ctx context.Context, id string) error

	// MarkRead marks a single notification as read.
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead marks every notification of the current user as read.
	MarkAllRead(ctx context.Context) error
}
