package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/giftring/backend/internal/exchange_service/domain"
	notifierdomain "github.com/giftring/backend/internal/notifier_service/domain"
)

// Querier is the common surface of pgxpool.Pool and pgx.Tx, so repository
// methods can run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner runs fn inside one database transaction; fn receives the
// transaction as a Querier. A returned error rolls everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q Querier) error) error
}

// GroupRepository persists gift-exchange groups.
type GroupRepository interface {
	Create(ctx context.Context, q Querier, group *domain.Group) error
	GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.Group, error)
	// GetByIDForUpdate row-locks the group; the draw transition's mutual
	// exclusion hangs on this lock plus the re-checked drawn guard.
	GetByIDForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*domain.Group, error)
	// SetDrawn stamps budget and drawn_at. It only affects a not-yet-drawn row
	// and returns domain.ErrAlreadyDrawn otherwise.
	SetDrawn(ctx context.Context, q Querier, id uuid.UUID, budget float64, drawnAt time.Time) error
}

// ParticipantRepository persists group memberships.
type ParticipantRepository interface {
	Create(ctx context.Context, q Querier, participant *domain.Participant) error
	GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.Participant, error)
	GetByGroupAndPerson(ctx context.Context, q Querier, groupID, personID uuid.UUID) (*domain.Participant, error)
	ListByGroup(ctx context.Context, q Querier, groupID uuid.UUID) ([]*domain.Participant, error)
	Delete(ctx context.Context, q Querier, id uuid.UUID) error
	UpdateWish(ctx context.Context, q Querier, id uuid.UUID, content string, updatedAt time.Time) error
	UpdateBudgetSuggestion(ctx context.Context, q Querier, id uuid.UUID, suggestion float64) error
}

// ExclusionRuleRepository persists pairwise exclusion constraints.
type ExclusionRuleRepository interface {
	Create(ctx context.Context, q Querier, rule *domain.ExclusionRule) error
	GetByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.ExclusionRule, error)
	ListByGroup(ctx context.Context, q Querier, groupID uuid.UUID) ([]*domain.ExclusionRule, error)
	Delete(ctx context.Context, q Querier, id uuid.UUID) error
	// DeleteForParticipant removes every rule referencing the participant;
	// used when a participant leaves a group pre-draw.
	DeleteForParticipant(ctx context.Context, q Querier, participantID uuid.UUID) error
}

// AssignmentRepository persists committed draw outcomes.
type AssignmentRepository interface {
	// CreateBatch inserts the whole permutation in one go; assignments are
	// never written any other way.
	CreateBatch(ctx context.Context, q Querier, assignments []*domain.Assignment) error
	GetByGiver(ctx context.Context, q Querier, groupID, giverParticipantID uuid.UUID) (*domain.Assignment, error)
	GetByRecipient(ctx context.Context, q Querier, groupID, recipientParticipantID uuid.UUID) (*domain.Assignment, error)
}

// NotificationIntentWriter is the exchange side's enqueue-only view of the
// notification intent store; the delivery worker owns all other mutations.
type NotificationIntentWriter interface {
	Create(ctx context.Context, q Querier, intent *notifierdomain.NotificationIntent) error
	CreateBatch(ctx context.Context, q Querier, intents []*notifierdomain.NotificationIntent) error
	// HasUnsentWishIntent reports whether an unsent wish-updated intent is
	// still waiting for the (group, person) pair; used to collapse edit bursts.
	HasUnsentWishIntent(ctx context.Context, q Querier, groupID, personID uuid.UUID) (bool, error)
}
