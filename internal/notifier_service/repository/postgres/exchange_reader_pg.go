package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giftring/backend/internal/notifier_service/domain"
)

// PgExchangeReader provides the read-only exchange lookups needed to render
// notification content. Both queries run on indexed paths.
type PgExchangeReader struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgExchangeReader(db *pgxpool.Pool, logger *slog.Logger) *PgExchangeReader {
	return &PgExchangeReader{db: db, logger: logger}
}

func (r *PgExchangeReader) GetGroupSummary(ctx context.Context, groupID uuid.UUID) (*domain.GroupSummary, error) {
	query := `SELECT name, budget FROM groups WHERE id = $1`
	summary := &domain.GroupSummary{}
	err := r.db.QueryRow(ctx, query, groupID).Scan(&summary.Name, &summary.Budget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error reading group summary", "error", err, "group_id", groupID)
		return nil, err
	}
	return summary, nil
}

// GetAssignmentSummary resolves the giver's committed outcome: who they give
// to and that person's current wish.
func (r *PgExchangeReader) GetAssignmentSummary(ctx context.Context, groupID, giverPersonID uuid.UUID) (*domain.AssignmentSummary, error) {
	query := `
		SELECT recipient.person_id, recipient.wish_content
		FROM assignments a
		JOIN participants giver ON giver.id = a.giver_participant_id
		JOIN participants recipient ON recipient.id = a.recipient_participant_id
		WHERE a.group_id = $1 AND giver.person_id = $2
	`
	summary := &domain.AssignmentSummary{}
	err := r.db.QueryRow(ctx, query, groupID, giverPersonID).Scan(
		&summary.RecipientPersonID, &summary.RecipientWish,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error reading assignment summary", "error", err,
			"group_id", groupID, "person_id", giverPersonID)
		return nil, err
	}
	return summary, nil
}
