package notifystore

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/notifysync/pkg/notifications"
)

func TestListQuery(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		opts      notifications.ListOptions
		wantWhere string
		wantTail  string
		wantArgs  int
	}{
		{
			name:      "no filters",
			wantWhere: "WHERE user_id = $1 ORDER BY",
			wantTail:  "ORDER BY created_at DESC, seq DESC",
			wantArgs:  1,
		},
		{
			name:      "unread with page",
			opts:      notifications.ListOptions{OnlyUnread: true, Limit: 10, Offset: 20},
			wantWhere: "WHERE user_id = $1 AND NOT read ORDER BY",
			wantTail:  "LIMIT $2 OFFSET $3",
			wantArgs:  3,
		},
		{
			name: "types and since",
			opts: notifications.ListOptions{
				Types: []notifications.Type{notifications.TypeError, notifications.TypeWarning},
				Since: &since,
				Limit: 5,
			},
			wantWhere: "WHERE user_id = $1 AND type = ANY($2) AND created_at >= $3 ORDER BY",
			wantTail:  "LIMIT $4",
			wantArgs:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args := listQuery("u1", tt.opts)
			assert.Contains(t, query, tt.wantWhere)
			assert.Contains(t, query, tt.wantTail)
			assert.Len(t, args, tt.wantArgs)
			assert.Equal(t, "u1", args[0])
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(Migrations, MigrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	data, err := fs.ReadFile(Migrations, MigrationsDir+"/"+entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS notifications")
}
