package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
)

type PgAssignmentRepository struct {
	logger *slog.Logger
}

func NewPgAssignmentRepository(logger *slog.Logger) *PgAssignmentRepository {
	return &PgAssignmentRepository{logger: logger}
}

// CreateBatch inserts the whole permutation at once. Unique indexes on
// (group_id, giver) and (group_id, recipient) back the permutation invariant
// at the storage level.
func (r *PgAssignmentRepository) CreateBatch(ctx context.Context, q repository.Querier, assignments []*domain.Assignment) error {
	query := `
		INSERT INTO assignments (id, group_id, giver_participant_id, recipient_participant_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, a := range assignments {
		if _, err := q.Exec(ctx, query,
			a.ID, a.GroupID, a.GiverParticipantID, a.RecipientParticipantID, a.CreatedAt,
		); err != nil {
			r.logger.ErrorContext(ctx, "Error inserting assignment batch", "error", err, "group_id", a.GroupID)
			return err
		}
	}
	return nil
}

func (r *PgAssignmentRepository) scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	err := row.Scan(&a.ID, &a.GroupID, &a.GiverParticipantID, &a.RecipientParticipantID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *PgAssignmentRepository) GetByGiver(ctx context.Context, q repository.Querier, groupID, giverParticipantID uuid.UUID) (*domain.Assignment, error) {
	query := `
		SELECT id, group_id, giver_participant_id, recipient_participant_id, created_at
		FROM assignments
		WHERE group_id = $1 AND giver_participant_id = $2
	`
	return r.scanAssignment(q.QueryRow(ctx, query, groupID, giverParticipantID))
}

func (r *PgAssignmentRepository) GetByRecipient(ctx context.Context, q repository.Querier, groupID, recipientParticipantID uuid.UUID) (*domain.Assignment, error) {
	query := `
		SELECT id, group_id, giver_participant_id, recipient_participant_id, created_at
		FROM assignments
		WHERE group_id = $1 AND recipient_participant_id = $2
	`
	return r.scanAssignment(q.QueryRow(ctx, query, groupID, recipientParticipantID))
}
