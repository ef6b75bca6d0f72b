package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
)

type PgGroupRepository struct {
	logger *slog.Logger
}

func NewPgGroupRepository(logger *slog.Logger) *PgGroupRepository {
	return &PgGroupRepository{logger: logger}
}

func (r *PgGroupRepository) Create(ctx context.Context, q repository.Querier, group *domain.Group) error {
	query := `
		INSERT INTO groups (id, name, owner_person_id, budget, drawn_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		group.ID, group.Name, group.OwnerPersonID, group.Budget, group.DrawnAt,
		group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating group", "error", err, "group_id", group.ID)
		return err
	}
	return nil
}

const groupColumns = `id, name, owner_person_id, budget, drawn_at, created_at, updated_at`

func (r *PgGroupRepository) scanGroup(row pgx.Row) (*domain.Group, error) {
	group := &domain.Group{}
	err := row.Scan(
		&group.ID, &group.Name, &group.OwnerPersonID, &group.Budget, &group.DrawnAt,
		&group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return group, nil
}

func (r *PgGroupRepository) GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	return r.scanGroup(q.QueryRow(ctx, query, id))
}

// GetByIDForUpdate row-locks the group for the duration of the enclosing
// transaction. Concurrent draw attempts serialize on this lock.
func (r *PgGroupRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1 FOR UPDATE`
	return r.scanGroup(q.QueryRow(ctx, query, id))
}

// SetDrawn stamps the final budget and draw timestamp. The drawn_at IS NULL
// guard makes the transition one-shot even outside the row lock.
func (r *PgGroupRepository) SetDrawn(ctx context.Context, q repository.Querier, id uuid.UUID, budget float64, drawnAt time.Time) error {
	query := `
		UPDATE groups
		SET budget = $1, drawn_at = $2, updated_at = $2
		WHERE id = $3 AND drawn_at IS NULL
	`
	tag, err := q.Exec(ctx, query, budget, drawnAt, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error marking group drawn", "error", err, "group_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyDrawn
	}
	return nil
}
