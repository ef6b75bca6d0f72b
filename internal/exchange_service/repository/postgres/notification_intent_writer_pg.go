package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/giftring/backend/internal/exchange_service/repository"
	notifierdomain "github.com/giftring/backend/internal/notifier_service/domain"
)

// PgNotificationIntentWriter is the exchange side's enqueue-only access to the
// notification_intents table. All post-enqueue mutation belongs to the
// notifier service.
type PgNotificationIntentWriter struct {
	logger *slog.Logger
}

func NewPgNotificationIntentWriter(logger *slog.Logger) *PgNotificationIntentWriter {
	return &PgNotificationIntentWriter{logger: logger}
}

const insertIntentQuery = `
	INSERT INTO notification_intents
		(id, intent_type, person_id, group_id, status, scheduled_at, attempt_count, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (w *PgNotificationIntentWriter) Create(ctx context.Context, q repository.Querier, intent *notifierdomain.NotificationIntent) error {
	_, err := q.Exec(ctx, insertIntentQuery,
		intent.ID, intent.Type, intent.PersonID, intent.GroupID, intent.Status,
		intent.ScheduledAt, intent.AttemptCount, intent.CreatedAt, intent.UpdatedAt,
	)
	if err != nil {
		w.logger.ErrorContext(ctx, "Error enqueueing notification intent", "error", err, "intent_id", intent.ID)
	}
	return err
}

func (w *PgNotificationIntentWriter) CreateBatch(ctx context.Context, q repository.Querier, intents []*notifierdomain.NotificationIntent) error {
	for _, intent := range intents {
		if err := w.Create(ctx, q, intent); err != nil {
			return err
		}
	}
	return nil
}

// HasUnsentWishIntent reports whether an unsent, non-terminal wish-updated
// intent is still waiting for the (group, person) pair.
func (w *PgNotificationIntentWriter) HasUnsentWishIntent(ctx context.Context, q repository.Querier, groupID, personID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_intents
			WHERE group_id = $1
			  AND person_id = $2
			  AND intent_type = $3
			  AND sent_at IS NULL
			  AND status IN ($4, $5)
		)
	`
	var exists bool
	err := q.QueryRow(ctx, query, groupID, personID,
		notifierdomain.IntentTypeWishUpdated,
		notifierdomain.StatusPending, notifierdomain.StatusSending,
	).Scan(&exists)
	return exists, err
}
