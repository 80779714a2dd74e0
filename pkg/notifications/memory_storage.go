package notifications

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[string][]Notification // userID -> notifications
	mu            sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string][]Notification),
	}
}

func (s *MemoryStorage) Create(_ context.Context, notif Notification) error {
	if notif.ID == "" {
		return ErrMissingID
	}
	if notif.UserID == "" {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, items := range s.notifications {
		if slices.ContainsFunc(items, func(n Notification) bool { return n.ID == notif.ID }) {
			return ErrDuplicateID
		}
	}
	s.notifications[notif.UserID] = append(s.notifications[notif.UserID], notif)
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, userID, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications[userID] {
		if n.ID == notifID {
			notif := n
			return &notif, nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (s *MemoryStorage) List(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	filtered := make([]Notification, 0, len(s.notifications[userID]))
	for _, n := range s.notifications[userID] {
		if opts.Match(n) {
			filtered = append(filtered, n)
		}
	}
	s.mu.RUnlock()

	// Newest first; equal dates keep insertion order reversed so later creates lead.
	slices.Reverse(filtered)
	slices.SortStableFunc(filtered, func(a, b Notification) int {
		return b.Date.Compare(a.Date)
	})

	start := min(opts.Offset, len(filtered))
	end := len(filtered)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, end)
	}
	return filtered[start:end], nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications := s.notifications[userID]
	for i := range notifications {
		if slices.Contains(notifIDs, notifications[i].ID) {
			notifications[i].Read = true
		}
	}
	return nil
}

func (s *MemoryStorage) MarkAllRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications := s.notifications[userID]
	for i := range notifications {
		notifications[i].Read = true
	}
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[userID] = slices.DeleteFunc(s.notifications[userID], func(n Notification) bool {
		return slices.Contains(notifIDs, n.ID)
	})
	return nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
