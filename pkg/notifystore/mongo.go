package notifystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clinicops/notifysync/pkg/notifications"
)

// DefaultMongoCollection is the collection used when none is given.
const DefaultMongoCollection = "notifications"

// Mongo stores one document per notification.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo returns a Mongo backend on db. An empty collection name uses
// DefaultMongoCollection.
func NewMongo(db *mongo.Database, collection string) *Mongo {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &Mongo{coll: db.Collection(collection)}
}

// EnsureIndexes creates the indexes used by List and CountUnread.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("notifystore: create indexes: %w", err)
	}
	return nil
}

type mongoNotification struct {
	ID                string    `bson:"_id"`
	UserID            string    `bson:"user_id"`
	Title             string    `bson:"title"`
	Message           string    `bson:"message"`
	Type              string    `bson:"type"`
	Priority          int       `bson:"priority"`
	Category          string    `bson:"category"`
	PhoneNotification bool      `bson:"phone_notification"`
	Read              bool      `bson:"read"`
	CreatedAt         time.Time `bson:"created_at"`
}

func toMongo(n notifications.Notification) mongoNotification {
	return mongoNotification{
		ID:                n.ID,
		UserID:            n.UserID,
		Title:             n.Title,
		Message:           n.Message,
		Type:              string(n.Type),
		Priority:          int(n.Priority),
		Category:          n.Category,
		PhoneNotification: n.PhoneNotification,
		Read:              n.Read,
		CreatedAt:         n.Date.UTC(),
	}
}

func (d mongoNotification) notification() notifications.Notification {
	return notifications.Notification{
		ID:                d.ID,
		UserID:            d.UserID,
		Title:             d.Title,
		Message:           d.Message,
		Type:              notifications.Type(d.Type),
		Priority:          notifications.Priority(d.Priority),
		Category:          d.Category,
		PhoneNotification: d.PhoneNotification,
		Read:              d.Read,
		Date:              d.CreatedAt,
	}
}

func (s *Mongo) Create(ctx context.Context, n notifications.Notification) error {
	if n.ID == "" {
		return notifications.ErrMissingID
	}
	if n.UserID == "" {
		return notifications.ErrMissingUserID
	}
	if n.Date.IsZero() {
		n.Date = time.Now()
	}

	_, err := s.coll.InsertOne(ctx, toMongo(n))
	if mongo.IsDuplicateKeyError(err) {
		return notifications.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("notifystore: insert notification: %w", err)
	}
	return nil
}

func (s *Mongo) Get(ctx context.Context, userID, notifID string) (*notifications.Notification, error) {
	var doc mongoNotification
	err := s.coll.FindOne(ctx, bson.M{"_id": notifID, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notifystore: get notification: %w", err)
	}
	n := doc.notification()
	return &n, nil
}

func (s *Mongo) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	filter := bson.M{"user_id": userID}
	if opts.OnlyUnread {
		filter["read"] = false
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		filter["type"] = bson.M{"$in": types}
	}
	if opts.Since != nil {
		filter["created_at"] = bson.M{"$gte": opts.Since.UTC()}
	}

	find := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Offset > 0 {
		find.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		find.SetLimit(int64(opts.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, find)
	if err != nil {
		return nil, fmt.Errorf("notifystore: list notifications: %w", err)
	}
	var docs []mongoNotification
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("notifystore: list notifications: %w", err)
	}

	items := make([]notifications.Notification, len(docs))
	for i, d := range docs {
		items[i] = d.notification()
	}
	return items, nil
}

func (s *Mongo) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "_id": bson.M{"$in": notifIDs}},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("notifystore: mark read: %w", err)
	}
	return nil
}

func (s *Mongo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("notifystore: mark all read: %w", err)
	}
	return nil
}

func (s *Mongo) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID, "_id": bson.M{"$in": notifIDs}})
	if err != nil {
		return fmt.Errorf("notifystore: delete: %w", err)
	}
	return nil
}

func (s *Mongo) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("notifystore: count unread: %w", err)
	}
	return int(count), nil
}

var _ notifications.Storage = (*Mongo)(nil)
