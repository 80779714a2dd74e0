package notifystore

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicops/notifysync/pkg/notifications"
	"github.com/clinicops/notifysync/pkg/pg"
)

// Migrations holds the goose migrations for the Postgres backend.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// DB is the subset of pgxpool.Pool used by Postgres.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores notifications in the notifications table.
type Postgres struct {
	db DB
}

// NewPostgres returns a Postgres backend. db is usually a *pgxpool.Pool.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

const selectColumns = `id, user_id, title, message, type, priority, category, phone_notification, read, created_at`

func (s *Postgres) Create(ctx context.Context, n notifications.Notification) error {
	if n.ID == "" {
		return notifications.ErrMissingID
	}
	if n.UserID == "" {
		return notifications.ErrMissingUserID
	}
	if n.Date.IsZero() {
		n.Date = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), int16(n.Priority),
		n.Category, n.PhoneNotification, n.Read, n.Date.UTC(),
	)
	if pg.IsDuplicateKeyError(err) {
		return notifications.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("notifystore: insert notification: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, userID, notifID string) (*notifications.Notification, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM notifications WHERE user_id = $1 AND id = $2`,
		userID, notifID,
	)
	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		return nil, notifications.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notifystore: get notification: %w", err)
	}
	return &n, nil
}

func (s *Postgres) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	query, args := listQuery(userID, opts)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("notifystore: list notifications: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notifications.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, fmt.Errorf("notifystore: list notifications: %w", err)
	}
	return items, nil
}

// listQuery builds the filtered list statement. Filters mirror ListOptions.Match.
func listQuery(userID string, opts notifications.ListOptions) (string, []any) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{userID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.OnlyUnread {
		where = append(where, "NOT read")
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		where = append(where, "type = ANY("+arg(types)+")")
	}
	if opts.Since != nil {
		where = append(where, "created_at >= "+arg(opts.Since.UTC()))
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM notifications WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" ORDER BY created_at DESC, seq DESC")
	if opts.Limit > 0 {
		b.WriteString(" LIMIT " + arg(opts.Limit))
	}
	if opts.Offset > 0 {
		b.WriteString(" OFFSET " + arg(opts.Offset))
	}
	return b.String(), args
}

func (s *Postgres) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND id = ANY($2) AND NOT read`,
		userID, notifIDs,
	)
	if err != nil {
		return fmt.Errorf("notifystore: mark read: %w", err)
	}
	return nil
}

func (s *Postgres) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return fmt.Errorf("notifystore: mark all read: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`, userID, notifIDs)
	if err != nil {
		return fmt.Errorf("notifystore: delete: %w", err)
	}
	return nil
}

func (s *Postgres) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("notifystore: count unread: %w", err)
	}
	return count, nil
}

func scanNotification(row pgx.Row) (notifications.Notification, error) {
	var (
		n        notifications.Notification
		typ      string
		priority int16
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &priority,
		&n.Category, &n.PhoneNotification, &n.Read, &n.Date)
	if err != nil {
		return notifications.Notification{}, err
	}
	n.Type = notifications.Type(typ)
	n.Priority = notifications.Priority(priority)
	return n, nil
}

var _ notifications.Storage = (*Postgres)(nil)
