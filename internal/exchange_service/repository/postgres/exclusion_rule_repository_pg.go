package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
)

type PgExclusionRuleRepository struct {
	logger *slog.Logger
}

func NewPgExclusionRuleRepository(logger *slog.Logger) *PgExclusionRuleRepository {
	return &PgExclusionRuleRepository{logger: logger}
}

// Create expects the pair already normalized (participant_a < participant_b),
// so the unique index catches duplicates in either order.
func (r *PgExclusionRuleRepository) Create(ctx context.Context, q repository.Querier, rule *domain.ExclusionRule) error {
	query := `
		INSERT INTO exclusion_rules (id, group_id, participant_a, participant_b, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.Exec(ctx, query,
		rule.ID, rule.GroupID, rule.ParticipantA, rule.ParticipantB, rule.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrDuplicateRule
		}
		r.logger.ErrorContext(ctx, "Error creating exclusion rule", "error", err, "group_id", rule.GroupID)
		return err
	}
	return nil
}

func (r *PgExclusionRuleRepository) GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.ExclusionRule, error) {
	query := `SELECT id, group_id, participant_a, participant_b, created_at FROM exclusion_rules WHERE id = $1`
	rule := &domain.ExclusionRule{}
	err := q.QueryRow(ctx, query, id).Scan(
		&rule.ID, &rule.GroupID, &rule.ParticipantA, &rule.ParticipantB, &rule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (r *PgExclusionRuleRepository) ListByGroup(ctx context.Context, q repository.Querier, groupID uuid.UUID) ([]*domain.ExclusionRule, error) {
	query := `
		SELECT id, group_id, participant_a, participant_b, created_at
		FROM exclusion_rules
		WHERE group_id = $1
		ORDER BY created_at ASC
	`
	rows, err := q.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ExclusionRule
	for rows.Next() {
		rule := &domain.ExclusionRule{}
		if err := rows.Scan(
			&rule.ID, &rule.GroupID, &rule.ParticipantA, &rule.ParticipantB, &rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *PgExclusionRuleRepository) Delete(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM exclusion_rules WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting exclusion rule", "error", err, "rule_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgExclusionRuleRepository) DeleteForParticipant(ctx context.Context, q repository.Querier, participantID uuid.UUID) error {
	query := `DELETE FROM exclusion_rules WHERE participant_a = $1 OR participant_b = $1`
	_, err := q.Exec(ctx, query, participantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting exclusion rules for participant", "error", err, "participant_id", participantID)
	}
	return err
}
