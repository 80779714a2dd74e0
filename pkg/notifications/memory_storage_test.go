package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStorage(t *testing.T, s Storage, userID string, items ...Notification) {
	t.Helper()
	for _, n := range items {
		n.UserID = userID
		require.NoError(t, s.Create(context.Background(), n))
	}
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	newSeeded := func(t *testing.T) *MemoryStorage {
		s := NewMemoryStorage()
		seedStorage(t, s, "u1",
			Notification{ID: "a", Date: base, Type: TypeInfo},
			Notification{ID: "b", Date: base.Add(time.Minute), Type: TypeError, Read: true},
			Notification{ID: "c", Date: base.Add(2 * time.Minute), Type: TypeWarning},
		)
		seedStorage(t, s, "u2", Notification{ID: "x", Date: base})
		return s
	}

	t.Run("create validates", func(t *testing.T) {
		t.Parallel()
		s := NewMemoryStorage()
		assert.ErrorIs(t, s.Create(ctx, Notification{UserID: "u1"}), ErrMissingID)
		assert.ErrorIs(t, s.Create(ctx, Notification{ID: "a"}), ErrMissingUserID)

		require.NoError(t, s.Create(ctx, Notification{ID: "a", UserID: "u1"}))
		assert.ErrorIs(t, s.Create(ctx, Notification{ID: "a", UserID: "u2"}), ErrDuplicateID)
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		s := newSeeded(t)

		n, err := s.Get(ctx, "u1", "b")
		require.NoError(t, err)
		assert.Equal(t, TypeError, n.Type)

		_, err = s.Get(ctx, "u2", "b")
		assert.ErrorIs(t, err, ErrNotificationNotFound)
	})

	t.Run("list is newest first", func(t *testing.T) {
		t.Parallel()
		s := newSeeded(t)

		got, err := s.List(ctx, "u1", ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, ids(got))
	})

	t.Run("list filters and paginates", func(t *testing.T) {
		t.Parallel()
		s := newSeeded(t)
		since := base.Add(30 * time.Second)

		tests := []struct {
			name string
			opts ListOptions
			want []string
		}{
			{name: "limit", opts: ListOptions{Limit: 2}, want: []string{"c", "b"}},
			{name: "offset", opts: ListOptions{Offset: 1, Limit: 1}, want: []string{"b"}},
			{name: "offset past end", opts: ListOptions{Offset: 10}, want: []string{}},
			{name: "only unread", opts: ListOptions{OnlyUnread: true}, want: []string{"c", "a"}},
			{name: "types", opts: ListOptions{Types: []Type{TypeInfo, TypeError}}, want: []string{"b", "a"}},
			{name: "since", opts: ListOptions{Since: &since}, want: []string{"c", "b"}},
		}
		for _, tt := range tests {
			got, err := s.List(ctx, "u1", tt.opts)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, ids(got), tt.name)
		}
	})

	t.Run("mark read and count", func(t *testing.T) {
		t.Parallel()
		s := newSeeded(t)

		count, err := s.CountUnread(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, s.MarkRead(ctx, "u1", "a", "missing"))
		count, _ = s.CountUnread(ctx, "u1")
		assert.Equal(t, 1, count)

		require.NoError(t, s.MarkAllRead(ctx, "u1"))
		count, _ = s.CountUnread(ctx, "u1")
		assert.Equal(t, 0, count)

		count, _ = s.CountUnread(ctx, "u2")
		assert.Equal(t, 1, count)
	})

	t.Run("delete ignores unknown ids", func(t *testing.T) {
		t.Parallel()
		s := newSeeded(t)

		require.NoError(t, s.Delete(ctx, "u1", "a", "missing"))
		got, _ := s.List(ctx, "u1", ListOptions{})
		assert.Equal(t, []string{"c", "b"}, ids(got))
	})
}
