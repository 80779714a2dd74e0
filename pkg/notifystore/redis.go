package notifystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicops/notifysync/pkg/notifications"
)

const maxWatchRetries = 10

// Redis keeps each user's inbox in three keys:
//
//	{prefix}:{user}:items     hash   id -> notification JSON
//	{prefix}:{user}:timeline  zset   id scored by creation time (unix nanos)
//	{prefix}:{user}:unread    set    ids not yet read
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis backend. An empty prefix defaults to "notify".
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "notify"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (s *Redis) itemsKey(userID string) string    { return s.prefix + ":" + userID + ":items" }
func (s *Redis) timelineKey(userID string) string { return s.prefix + ":" + userID + ":timeline" }
func (s *Redis) unreadKey(userID string) string   { return s.prefix + ":" + userID + ":unread" }
func (s *Redis) idsKey() string                   { return s.prefix + ":ids" }

func (s *Redis) Create(ctx context.Context, n notifications.Notification) error {
	if n.ID == "" {
		return notifications.ErrMissingID
	}
	if n.UserID == "" {
		return notifications.ErrMissingUserID
	}
	if n.Date.IsZero() {
		n.Date = time.Now()
	}
	n.Date = n.Date.UTC()

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notifystore: encode notification: %w", err)
	}

	// Ids are unique across users, as with the other backends.
	added, err := s.rdb.SAdd(ctx, s.idsKey(), n.ID).Result()
	if err != nil {
		return fmt.Errorf("notifystore: reserve id: %w", err)
	}
	if added == 0 {
		return notifications.ErrDuplicateID
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.itemsKey(n.UserID), n.ID, data)
		p.ZAdd(ctx, s.timelineKey(n.UserID), redis.Z{Score: float64(n.Date.UnixNano()), Member: n.ID})
		if !n.Read {
			p.SAdd(ctx, s.unreadKey(n.UserID), n.ID)
		}
		return nil
	})
	if err != nil {
		_ = s.rdb.SRem(context.WithoutCancel(ctx), s.idsKey(), n.ID).Err()
		return fmt.Errorf("notifystore: store notification: %w", err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, userID, notifID string) (*notifications.Notification, error) {
	data, err := s.rdb.HGet(ctx, s.itemsKey(userID), notifID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notifystore: get notification: %w", err)
	}

	n, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Redis) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if opts.Since != nil {
		rng.Min = strconv.FormatInt(opts.Since.UnixNano(), 10)
	}
	// Without content filters the page can be cut by Redis itself.
	paged := !opts.OnlyUnread && len(opts.Types) == 0
	if paged {
		rng.Offset = int64(opts.Offset)
		if opts.Limit > 0 {
			rng.Count = int64(opts.Limit)
		} else if opts.Offset > 0 {
			rng.Count = -1
		}
	}

	ids, err := s.rdb.ZRevRangeByScore(ctx, s.timelineKey(userID), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("notifystore: list notifications: %w", err)
	}
	if len(ids) == 0 {
		return []notifications.Notification{}, nil
	}

	values, err := s.rdb.HMGet(ctx, s.itemsKey(userID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("notifystore: list notifications: %w", err)
	}

	items := make([]notifications.Notification, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue // removed between the two reads
		}
		n, err := s.decode(data)
		if err != nil {
			return nil, err
		}
		if opts.Match(n) {
			items = append(items, n)
		}
	}

	if paged {
		return items, nil
	}
	start := min(opts.Offset, len(items))
	end := len(items)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, end)
	}
	return items[start:end], nil
}

// MarkRead rewrites only entries still present in the items hash. The hash
// is watched, so a concurrent Delete aborts and retries the transaction
// instead of being undone by a stale write.
func (s *Redis) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}

	members := make([]any, len(notifIDs))
	for i, id := range notifIDs {
		members[i] = id
	}

	err := s.watch(ctx, func(tx *redis.Tx) error {
		values, err := tx.HMGet(ctx, s.itemsKey(userID), notifIDs...).Result()
		if err != nil {
			return err
		}

		updates := make([]any, 0, 2*len(values))
		for _, v := range values {
			data, ok := v.(string)
			if !ok {
				continue
			}
			n, err := s.decode(data)
			if err != nil {
				return err
			}
			if n.Read {
				continue
			}
			n.Read = true
			encoded, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("notifystore: encode notification: %w", err)
			}
			updates = append(updates, n.ID, encoded)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if len(updates) > 0 {
				p.HSet(ctx, s.itemsKey(userID), updates...)
			}
			p.SRem(ctx, s.unreadKey(userID), members...)
			return nil
		})
		return err
	}, s.itemsKey(userID))
	if err != nil {
		return fmt.Errorf("notifystore: mark read: %w", err)
	}
	return nil
}

func (s *Redis) MarkAllRead(ctx context.Context, userID string) error {
	ids, err := s.rdb.SMembers(ctx, s.unreadKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("notifystore: mark all read: %w", err)
	}
	return s.MarkRead(ctx, userID, ids...)
}

func (s *Redis) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}

	err := s.watch(ctx, func(tx *redis.Tx) error {
		// Only ids owned by the user release their global reservation.
		owned, err := tx.HMGet(ctx, s.itemsKey(userID), notifIDs...).Result()
		if err != nil {
			return err
		}
		var members []any
		var fields []string
		for i, v := range owned {
			if v != nil {
				members = append(members, notifIDs[i])
				fields = append(fields, notifIDs[i])
			}
		}
		if len(members) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, s.itemsKey(userID), fields...)
			p.ZRem(ctx, s.timelineKey(userID), members...)
			p.SRem(ctx, s.unreadKey(userID), members...)
			p.SRem(ctx, s.idsKey(), members...)
			return nil
		})
		return err
	}, s.itemsKey(userID))
	if err != nil {
		return fmt.Errorf("notifystore: delete: %w", err)
	}
	return nil
}

func (s *Redis) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.rdb.SCard(ctx, s.unreadKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("notifystore: count unread: %w", err)
	}
	return int(count), nil
}

// watch runs fn in a WATCH transaction on keys, retrying when another
// client changed a watched key before EXEC.
func (s *Redis) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for range maxWatchRetries {
		err = s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (s *Redis) decode(data string) (notifications.Notification, error) {
	var n notifications.Notification
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		return n, errors.Join(notifications.ErrMalformedPayload, err)
	}
	return n, nil
}

var _ notifications.Storage = (*Redis)(nil)
