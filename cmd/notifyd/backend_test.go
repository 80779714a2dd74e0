package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/notifysync/pkg/logger"
	"github.com/clinicops/notifysync/pkg/notifications"
)

func TestOpenBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	b, err := openBackend(ctx, "memory", logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "memory", b.name)
	assert.IsType(t, &notifications.MemoryStorage{}, b.storage)
	assert.Empty(t, b.checks)
	b.close(ctx)

	_, err = openBackend(ctx, "sqlite", logger.Discard())
	assert.ErrorIs(t, err, errUnknownStorage)
}
