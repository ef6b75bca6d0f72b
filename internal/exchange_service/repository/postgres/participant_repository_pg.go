package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
)

const uniqueViolationCode = "23505"

type PgParticipantRepository struct {
	logger *slog.Logger
}

func NewPgParticipantRepository(logger *slog.Logger) *PgParticipantRepository {
	return &PgParticipantRepository{logger: logger}
}

const participantColumns = `id, group_id, person_id, budget_suggestion, wish_content, wish_updated_at, joined_at`

func (r *PgParticipantRepository) scanParticipant(row pgx.Row) (*domain.Participant, error) {
	p := &domain.Participant{}
	err := row.Scan(
		&p.ID, &p.GroupID, &p.PersonID, &p.BudgetSuggestion,
		&p.WishContent, &p.WishUpdatedAt, &p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PgParticipantRepository) Create(ctx context.Context, q repository.Querier, participant *domain.Participant) error {
	query := `
		INSERT INTO participants (id, group_id, person_id, budget_suggestion, wish_content, wish_updated_at, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		participant.ID, participant.GroupID, participant.PersonID,
		participant.BudgetSuggestion, participant.WishContent, participant.WishUpdatedAt,
		participant.JoinedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateParticipant
		}
		r.logger.ErrorContext(ctx, "Error creating participant", "error", err, "group_id", participant.GroupID)
		return err
	}
	return nil
}

func (r *PgParticipantRepository) GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return r.scanParticipant(q.QueryRow(ctx, query, id))
}

func (r *PgParticipantRepository) GetByGroupAndPerson(ctx context.Context, q repository.Querier, groupID, personID uuid.UUID) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE group_id = $1 AND person_id = $2`
	return r.scanParticipant(q.QueryRow(ctx, query, groupID, personID))
}

func (r *PgParticipantRepository) ListByGroup(ctx context.Context, q repository.Querier, groupID uuid.UUID) ([]*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE group_id = $1 ORDER BY joined_at ASC`
	rows, err := q.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p := &domain.Participant{}
		if err := rows.Scan(
			&p.ID, &p.GroupID, &p.PersonID, &p.BudgetSuggestion,
			&p.WishContent, &p.WishUpdatedAt, &p.JoinedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *PgParticipantRepository) Delete(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting participant", "error", err, "participant_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgParticipantRepository) UpdateWish(ctx context.Context, q repository.Querier, id uuid.UUID, content string, updatedAt time.Time) error {
	query := `UPDATE participants SET wish_content = $1, wish_updated_at = $2 WHERE id = $3`
	tag, err := q.Exec(ctx, query, content, updatedAt, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating wish", "error", err, "participant_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgParticipantRepository) UpdateBudgetSuggestion(ctx context.Context, q repository.Querier, id uuid.UUID, suggestion float64) error {
	query := `UPDATE participants SET budget_suggestion = $1 WHERE id = $2`
	tag, err := q.Exec(ctx, query, suggestion, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating budget suggestion", "error", err, "participant_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
