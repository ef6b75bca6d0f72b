package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/giftring/backend/internal/notifier_service/domain"
)

// PgxIface is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgNotificationIntentRepository struct {
	db     PgxIface
	logger *slog.Logger
}

func NewPgNotificationIntentRepository(db PgxIface, logger *slog.Logger) *PgNotificationIntentRepository {
	return &PgNotificationIntentRepository{db: db, logger: logger}
}

// AcquireDue claims a batch of due intents with FOR UPDATE SKIP LOCKED so
// concurrent workers never double-claim. Claiming marks the row 'sending' and
// counts the attempt; rows stuck in 'sending' past claimTimeout (a crashed
// worker) become eligible again. The attempt cap guards only the pending arm:
// a stale 'sending' row is reclaimed even when its attempts are exhausted, so
// a crash during the final attempt still ends in a terminal failure instead of
// a stranded row.
func (r *PgNotificationIntentRepository) AcquireDue(ctx context.Context, dueTime time.Time, claimTimeout time.Duration, maxAttempts, limit int) ([]*domain.NotificationIntent, error) {
	query := `
		WITH due_intents AS (
			SELECT id
			FROM notification_intents
			WHERE sent_at IS NULL
			  AND (
			        (status = $2 AND scheduled_at <= $3 AND attempt_count < $1)
			     OR (status = $4 AND last_attempt_at <= $5)
			  )
			ORDER BY scheduled_at ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_intents ni
		SET status = $4,
		    attempt_count = ni.attempt_count + 1,
		    first_attempt_at = COALESCE(ni.first_attempt_at, $3),
		    last_attempt_at = $3,
		    updated_at = $3
		FROM due_intents di
		WHERE ni.id = di.id
		RETURNING ni.id, ni.intent_type, ni.person_id, ni.group_id, ni.status,
		          ni.scheduled_at, ni.sent_at, ni.attempt_count, ni.last_error,
		          ni.first_attempt_at, ni.last_attempt_at, ni.created_at, ni.updated_at
	`
	staleBefore := dueTime.Add(-claimTimeout)
	rows, err := r.db.Query(ctx, query,
		maxAttempts, domain.StatusPending, dueTime, domain.StatusSending, staleBefore, limit,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error acquiring due intents", "error", err)
		return nil, err
	}
	defer rows.Close()

	var intents []*domain.NotificationIntent
	for rows.Next() {
		intent := &domain.NotificationIntent{}
		if err := rows.Scan(
			&intent.ID, &intent.Type, &intent.PersonID, &intent.GroupID, &intent.Status,
			&intent.ScheduledAt, &intent.SentAt, &intent.AttemptCount, &intent.LastError,
			&intent.FirstAttemptAt, &intent.LastAttemptAt, &intent.CreatedAt, &intent.UpdatedAt,
		); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(intents) == 0 {
		return nil, domain.ErrNoDueIntents
	}
	return intents, nil
}

func (r *PgNotificationIntentRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE notification_intents
		SET status = $1, sent_at = $2, last_error = NULL, updated_at = $2
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, domain.StatusSent, sentAt, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking intent sent", "error", err, "intent_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgNotificationIntentRepository) MarkForRetry(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, lastError sql.NullString) error {
	query := `
		UPDATE notification_intents
		SET status = $1, scheduled_at = $2, last_error = $3, updated_at = $4
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query,
		domain.StatusPending, nextAttemptAt, lastError, time.Now().UTC(), id,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking intent for retry", "error", err, "intent_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed leaves sent_at NULL; the row is terminal and kept for audit.
func (r *PgNotificationIntentRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError sql.NullString) error {
	query := `
		UPDATE notification_intents
		SET status = $1, last_error = $2, updated_at = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, domain.StatusFailed, lastError, time.Now().UTC(), id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking intent failed", "error", err, "intent_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
