package notifications

import (
	"context"
	"time"
)

// Storage is the server-side persistence port behind a notification service.
// All operations are scoped to the owning user.
type Storage interface {
	// Create stores a new notification under notif.UserID.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, userID, notifID string) (*Notification, error)

	// List returns notifications for a user, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// MarkRead marks notification(s) as read.
	MarkRead(ctx context.Context, userID string, notifIDs ...string) error

	// MarkAllRead marks every notification of the user as read.
	MarkAllRead(ctx context.Context, userID string) error

	// Delete removes notification(s). Unknown ids are ignored.
	Delete(ctx context.Context, userID string, notifIDs ...string) error

	// CountUnread returns unread count for user.
	CountUnread(ctx context.Context, userID string) (int, error)
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Limit      int        // Maximum number of notifications to return (0 = no limit)
	Offset     int        // Number of notifications to skip for pagination
	OnlyUnread bool       // When true, only return unread notifications
	Types      []Type     // If specified, only return notifications of these types
	Since      *time.Time // If specified, only return notifications created after this time
}

// Match reports whether n passes the filters in opts. Pagination is not applied.
func (opts ListOptions) Match(n Notification) bool {
	if opts.OnlyUnread && n.Read {
		return false
	}
	if len(opts.Types) > 0 && !containsType(opts.Types, n.Type) {
		return false
	}
	if opts.Since != nil && n.Date.Before(*opts.Since) {
		return false
	}
	return true
}

func containsType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
