package notifications

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Type represents the notification type/severity.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Priority represents the notification priority level.
// The zero value is PriorityMedium.
type Priority int

const (
	PriorityLow Priority = iota - 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "medium"
	}
}

// MarshalText encodes the priority in its wire form (low, medium, high).
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts the wire form. Unknown values decode as medium.
func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}

// ParsePriority maps a textual or numeric priority to Priority,
// falling back to PriorityMedium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "0":
		return PriorityLow
	case "high", "2", "urgent":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// DefaultCategory is assigned to notifications that carry no category.
const DefaultCategory = "general"

// Notification is the canonical notification shape held by the Store.
type Notification struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	Read              bool      `json:"read"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	Type              Type      `json:"type"`
	Priority          Priority  `json:"priority"`
	Category          string    `json:"category"`
	UserID            string    `json:"userId"`
	PhoneNotification bool      `json:"phoneNotification"`
}

// IsLocal reports whether the id has the shape of a client-minted id.
// Use Store.IsLocal for whether the Store treats an entry as unconfirmed.
func (n Notification) IsLocal() bool {
	return IsLocalID(n.ID)
}

// Input is the payload for creating a notification.
type Input struct {
	Title             string   `json:"title"`
	Message           string   `json:"message"`
	Type              Type     `json:"type"`
	Priority          Priority `json:"priority"`
	Category          string   `json:"category"`
	UserID            string   `json:"userId"`
	PhoneNotification bool     `json:"phoneNotification"`
}

// withDefaults fills type and category so the payload sent to persistence
// matches what the optimistic entry shows.
func (in Input) withDefaults() Input {
	if !in.Type.Valid() {
		in.Type = TypeInfo
	}
	if in.Category == "" {
		in.Category = DefaultCategory
	}
	return in
}

// Notification builds a notification with the given id and creation time.
func (in Input) Notification(id string, at time.Time) Notification {
	in = in.withDefaults()
	return Notification{
		ID:                id,
		Date:              at,
		Title:             in.Title,
		Message:           in.Message,
		Type:              in.Type,
		Priority:          in.Priority,
		Category:          in.Category,
		UserID:            in.UserID,
		PhoneNotification: in.PhoneNotification,
	}
}

const localIDPrefix = "local-"

var localSeq atomic.Uint64

// NewLocalID mints a client-side id, unique among ids minted by this process.
// Persistence may still return an id of the same shape; the Store skips ids
// already present in its collection.
func NewLocalID() string {
	return fmt.Sprintf("%s%d", localIDPrefix, localSeq.Add(1))
}

// IsLocalID reports whether id has the shape NewLocalID produces.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
