package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// NotificationIntentRepository is the delivery worker's view of the intent store.
type NotificationIntentRepository interface {
	// AcquireDue atomically claims up to limit unsent intents whose scheduled
	// time has passed and whose attempt count is below maxAttempts, ordered by
	// scheduled time. Claiming marks them 'sending', increments attempt_count
	// and stamps first/last attempt times, so two workers never double-send.
	// Intents stuck in 'sending' longer than claimTimeout (worker crash) are
	// re-eligible regardless of attempt count; the caller decides whether a
	// recovered claim still has attempts left. Returns ErrNoDueIntents when
	// nothing is due.
	AcquireDue(ctx context.Context, dueTime time.Time, claimTimeout time.Duration, maxAttempts, limit int) ([]*NotificationIntent, error)

	// MarkSent records successful delivery and clears the last error.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// MarkForRetry returns a failed intent to 'pending' with a new scheduled
	// time and records the delivery error.
	MarkForRetry(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, lastError sql.NullString) error

	// MarkFailed makes the intent terminal after attempts are exhausted.
	// sent_at stays NULL; the record is kept for operator visibility.
	MarkFailed(ctx context.Context, id uuid.UUID, lastError sql.NullString) error
}

// GroupSummary is the slice of exchange data needed to render notifications.
type GroupSummary struct {
	Name   string
	Budget sql.NullFloat64
}

// AssignmentSummary is the giver's committed draw outcome.
type AssignmentSummary struct {
	RecipientPersonID uuid.UUID
	RecipientWish     sql.NullString
}

// ExchangeReader is the read-only view of the exchange store used when
// building notification content. Both lookups sit on indexed paths.
type ExchangeReader interface {
	GetGroupSummary(ctx context.Context, groupID uuid.UUID) (*GroupSummary, error)
	GetAssignmentSummary(ctx context.Context, groupID, giverPersonID uuid.UUID) (*AssignmentSummary, error)
}
