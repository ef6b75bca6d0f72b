package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
	notifierdomain "github.com/giftring/backend/internal/notifier_service/domain"
)

// fakeTxRunner runs the callback without a real transaction; the mock
// repositories ignore the Querier argument.
type fakeTxRunner struct{}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(q repository.Querier) error) error {
	return fn(nil)
}

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, q repository.Querier, group *domain.Group) error {
	args := m.Called(ctx, q, group)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Group, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Group, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) SetDrawn(ctx context.Context, q repository.Querier, id uuid.UUID, budget float64, drawnAt time.Time) error {
	args := m.Called(ctx, q, id, budget, drawnAt)
	return args.Error(0)
}

type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Create(ctx context.Context, q repository.Querier, participant *domain.Participant) error {
	args := m.Called(ctx, q, participant)
	return args.Error(0)
}

func (m *MockParticipantRepository) GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Participant, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) GetByGroupAndPerson(ctx context.Context, q repository.Querier, groupID, personID uuid.UUID) (*domain.Participant, error) {
	args := m.Called(ctx, q, groupID, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) ListByGroup(ctx context.Context, q repository.Querier, groupID uuid.UUID) ([]*domain.Participant, error) {
	args := m.Called(ctx, q, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) Delete(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func (m *MockParticipantRepository) UpdateWish(ctx context.Context, q repository.Querier, id uuid.UUID, content string, updatedAt time.Time) error {
	args := m.Called(ctx, q, id, content, updatedAt)
	return args.Error(0)
}

func (m *MockParticipantRepository) UpdateBudgetSuggestion(ctx context.Context, q repository.Querier, id uuid.UUID, suggestion float64) error {
	args := m.Called(ctx, q, id, suggestion)
	return args.Error(0)
}

type MockExclusionRuleRepository struct {
	mock.Mock
}

func (m *MockExclusionRuleRepository) Create(ctx context.Context, q repository.Querier, rule *domain.ExclusionRule) error {
	args := m.Called(ctx, q, rule)
	return args.Error(0)
}

func (m *MockExclusionRuleRepository) GetByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.ExclusionRule, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExclusionRule), args.Error(1)
}

func (m *MockExclusionRuleRepository) ListByGroup(ctx context.Context, q repository.Querier, groupID uuid.UUID) ([]*domain.ExclusionRule, error) {
	args := m.Called(ctx, q, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ExclusionRule), args.Error(1)
}

func (m *MockExclusionRuleRepository) Delete(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func (m *MockExclusionRuleRepository) DeleteForParticipant(ctx context.Context, q repository.Querier, participantID uuid.UUID) error {
	args := m.Called(ctx, q, participantID)
	return args.Error(0)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) CreateBatch(ctx context.Context, q repository.Querier, assignments []*domain.Assignment) error {
	args := m.Called(ctx, q, assignments)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetByGiver(ctx context.Context, q repository.Querier, groupID, giverParticipantID uuid.UUID) (*domain.Assignment, error) {
	args := m.Called(ctx, q, groupID, giverParticipantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) GetByRecipient(ctx context.Context, q repository.Querier, groupID, recipientParticipantID uuid.UUID) (*domain.Assignment, error) {
	args := m.Called(ctx, q, groupID, recipientParticipantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assignment), args.Error(1)
}

type MockNotificationIntentWriter struct {
	mock.Mock
}

func (m *MockNotificationIntentWriter) Create(ctx context.Context, q repository.Querier, intent *notifierdomain.NotificationIntent) error {
	args := m.Called(ctx, q, intent)
	return args.Error(0)
}

func (m *MockNotificationIntentWriter) CreateBatch(ctx context.Context, q repository.Querier, intents []*notifierdomain.NotificationIntent) error {
	args := m.Called(ctx, q, intents)
	return args.Error(0)
}

func (m *MockNotificationIntentWriter) HasUnsentWishIntent(ctx context.Context, q repository.Querier, groupID, personID uuid.UUID) (bool, error) {
	args := m.Called(ctx, q, groupID, personID)
	return args.Bool(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}
