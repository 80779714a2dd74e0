package notifications

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Operation names a persistence call issued by the Store.
type Operation string

const (
	OpList        Operation = "list"
	OpCreate      Operation = "create"
	OpDelete      Operation = "delete"
	OpMarkRead    Operation = "mark_read"
	OpMarkAllRead Operation = "mark_all_read"
)

// Status is the confirmation state of an optimistic mutation.
type Status int

const (
	// StatusSkipped means no persistence call was needed (missing id, local-only entry, no-op).
	StatusSkipped Status = iota
	// StatusConfirmed means persistence acknowledged the mutation.
	StatusConfirmed
	// StatusFailed means persistence rejected or never answered the mutation.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Action is the policy decision for a failed confirmation.
type Action int

const (
	// ActionKeep accepts the optimistic state as final.
	ActionKeep Action = iota
	// ActionRollback reverts the optimistic mutation.
	ActionRollback
)

func (a Action) String() string {
	if a == ActionRollback {
		return "rollback"
	}
	return "keep"
}

// Outcome is the tagged result of a single optimistic mutation.
type Outcome struct {
	Op     Operation
	ID     string
	Status Status
	// Entity is the authoritative notification for a confirmed create.
	Entity *Notification
	// Err is set when Status is StatusFailed.
	Err error
	// Action is what the policy decided for a failed confirmation.
	Action Action
}

// Confirmed reports whether persistence acknowledged the mutation.
func (o Outcome) Confirmed() bool { return o.Status == StatusConfirmed }

// Failed reports whether the persistence call failed after all retries.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// Policy decides how the Store reacts to a failed persistence call.
type Policy interface {
	// Backoff returns a fresh retry schedule for one call, or nil to disable retries.
	Backoff() retry.Backoff

	// OnFailure is consulted once retries are exhausted.
	OnFailure(ctx context.Context, o Outcome) Action
}

type keepPolicy struct{}

// KeepOptimistic logs failures and keeps the optimistic state. This is the default.
func KeepOptimistic() Policy { return keepPolicy{} }

func (keepPolicy) Backoff() retry.Backoff { return nil }
func (keepPolicy) OnFailure(context.Context, Outcome) Action { return ActionKeep }

type rollbackPolicy struct{}

// RollbackOnFailure reverts the optimistic mutation when persistence fails.
func RollbackOnFailure() Policy { return rollbackPolicy{} }

func (rollbackPolicy) Backoff() retry.Backoff { return nil }
func (rollbackPolicy) OnFailure(context.Context, Outcome) Action { return ActionRollback }

type retryPolicy struct {
	base       time.Duration
	maxRetries uint64
	fallback   Policy
}

// RetryWithBackoff retries failed calls with exponential backoff starting at base,
// up to maxRetries extra attempts, then defers to fallback.
// A nil fallback means KeepOptimistic.
func RetryWithBackoff(base time.Duration, maxRetries uint64, fallback Policy) Policy {
	if fallback == nil {
		fallback = KeepOptimistic()
	}
	return retryPolicy{base: base, maxRetries: maxRetries, fallback: fallback}
}

func (p retryPolicy) Backoff() retry.Backoff {
	return retry.WithMaxRetries(p.maxRetries, retry.NewExponential(p.base))
}

func (p retryPolicy) OnFailure(ctx context.Context, o Outcome) Action {
	return p.fallback.OnFailure(ctx, o)
}
