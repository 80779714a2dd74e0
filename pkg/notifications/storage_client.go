package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StorageClient is an in-process Client over a Storage for a single user.
// It answers the way the REST service does, so the Store treats both alike.
type StorageClient struct {
	storage Storage
	userID  string
	now     func() time.Time
}

// NewStorageClient binds storage to userID.
func NewStorageClient(storage Storage, userID string) *StorageClient {
	return &StorageClient{storage: storage, userID: userID, now: time.Now}
}

type listResponse struct {
	Data []Notification `json:"data"`
}

func (c *StorageClient) List(ctx context.Context, limit int) ([]byte, error) {
	items, err := c.storage.List(ctx, c.userID, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	return json.Marshal(listResponse{Data: items})
}

// Create stores in for the bound user. A UserID on in is ignored, matching
// the REST handler, which takes the owner from the request and never from
// the payload.
func (c *StorageClient) Create(ctx context.Context, in Input) ([]byte, error) {
	in.UserID = c.userID
	n := in.Notification(uuid.NewString(), c.now())
	if err := c.storage.Create(ctx, n); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func (c *StorageClient) Delete(ctx context.Context, id string) error {
	return c.storage.Delete(ctx, c.userID, id)
}

func (c *StorageClient) MarkRead(ctx context.Context, id string) error {
	return c.storage.MarkRead(ctx, c.userID, id)
}

func (c *StorageClient) MarkAllRead(ctx context.Context) error {
	return c.storage.MarkAllRead(ctx, c.userID)
}
