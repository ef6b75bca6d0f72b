package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
)

// GroupService covers group lifecycle, membership and exclusion rules,
// everything mutable only while the group is still Open.
type GroupService struct {
	db              repository.Querier
	tx              repository.TxRunner
	groupRepo       repository.GroupRepository
	participantRepo repository.ParticipantRepository
	ruleRepo        repository.ExclusionRuleRepository
	logger          *slog.Logger
}

func NewGroupService(
	db repository.Querier,
	tx repository.TxRunner,
	groupRepo repository.GroupRepository,
	participantRepo repository.ParticipantRepository,
	ruleRepo repository.ExclusionRuleRepository,
	logger *slog.Logger,
) *GroupService {
	return &GroupService{
		db:              db,
		tx:              tx,
		groupRepo:       groupRepo,
		participantRepo: participantRepo,
		ruleRepo:        ruleRepo,
		logger:          logger.With("service", "group"),
	}
}

// CreateGroup creates a group and enrolls the creator as its first participant.
func (s *GroupService) CreateGroup(ctx context.Context, ownerPersonID uuid.UUID, name string) (*domain.Group, error) {
	if name == "" {
		return nil, &domain.ValidationError{Message: "group name must not be empty"}
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:            uuid.New(),
		Name:          name,
		OwnerPersonID: ownerPersonID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		if err := s.groupRepo.Create(ctx, q, group); err != nil {
			return err
		}
		owner := &domain.Participant{
			ID:       uuid.New(),
			GroupID:  group.ID,
			PersonID: ownerPersonID,
			JoinedAt: now,
		}
		return s.participantRepo.Create(ctx, q, owner)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Group created", "group_id", group.ID, "owner", ownerPersonID)
	return group, nil
}

// GetGroup returns a group visible to any of its participants.
func (s *GroupService) GetGroup(ctx context.Context, requesterPersonID, groupID uuid.UUID) (*domain.Group, []*domain.Participant, error) {
	group, err := s.groupRepo.GetByID(ctx, s.db, groupID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.participantRepo.ListByGroup(ctx, s.db, groupID)
	if err != nil {
		return nil, nil, err
	}
	member := false
	for _, p := range participants {
		if p.PersonID == requesterPersonID {
			member = true
			break
		}
	}
	if !member {
		return nil, nil, domain.ErrForbidden
	}
	return group, participants, nil
}

// JoinGroup enrolls a person into an Open group.
func (s *GroupService) JoinGroup(ctx context.Context, personID, groupID uuid.UUID) (*domain.Participant, error) {
	group, err := s.groupRepo.GetByID(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsDrawn() {
		return nil, domain.ErrGroupDrawn
	}

	participant := &domain.Participant{
		ID:       uuid.New(),
		GroupID:  groupID,
		PersonID: personID,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.participantRepo.Create(ctx, s.db, participant); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Participant joined", "group_id", groupID, "person_id", personID)
	return participant, nil
}

// RemoveParticipant removes a member pre-draw. The owner may remove anyone;
// a participant may remove themselves. Exclusion rules referencing the member
// are deleted in the same transaction.
func (s *GroupService) RemoveParticipant(ctx context.Context, requesterPersonID, groupID, participantID uuid.UUID) error {
	return s.tx.InTx(ctx, func(q repository.Querier) error {
		group, err := s.groupRepo.GetByIDForUpdate(ctx, q, groupID)
		if err != nil {
			return err
		}
		if group.IsDrawn() {
			return domain.ErrGroupDrawn
		}

		participant, err := s.participantRepo.GetByID(ctx, q, participantID)
		if err != nil {
			return err
		}
		if participant.GroupID != groupID {
			return domain.ErrNotFound
		}
		if requesterPersonID != group.OwnerPersonID && requesterPersonID != participant.PersonID {
			return domain.ErrForbidden
		}

		if err := s.ruleRepo.DeleteForParticipant(ctx, q, participantID); err != nil {
			return err
		}
		return s.participantRepo.Delete(ctx, q, participantID)
	})
}

// SetBudgetSuggestion records a participant's anonymous budget suggestion,
// only while the group is Open.
func (s *GroupService) SetBudgetSuggestion(ctx context.Context, personID, groupID uuid.UUID, amount float64) error {
	if err := validateBudget(amount); err != nil {
		return err
	}
	group, err := s.groupRepo.GetByID(ctx, s.db, groupID)
	if err != nil {
		return err
	}
	if group.IsDrawn() {
		return domain.ErrGroupDrawn
	}
	participant, err := s.participantRepo.GetByGroupAndPerson(ctx, s.db, groupID, personID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	return s.participantRepo.UpdateBudgetSuggestion(ctx, s.db, participant.ID, amount)
}

// AddExclusionRule forbids the pair from drawing each other. Owner only,
// pre-draw only, no self-pairs, no duplicates in either order.
func (s *GroupService) AddExclusionRule(ctx context.Context, requesterPersonID, groupID, personA, personB uuid.UUID) (*domain.ExclusionRule, error) {
	if personA == personB {
		return nil, &domain.ValidationError{Message: "an exclusion rule cannot pair a participant with themselves"}
	}

	var rule *domain.ExclusionRule
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		group, err := s.groupRepo.GetByIDForUpdate(ctx, q, groupID)
		if err != nil {
			return err
		}
		if group.IsDrawn() {
			return domain.ErrGroupDrawn
		}
		if group.OwnerPersonID != requesterPersonID {
			return domain.ErrForbidden
		}

		pa, err := s.participantRepo.GetByGroupAndPerson(ctx, q, groupID, personA)
		if err != nil {
			return err
		}
		pb, err := s.participantRepo.GetByGroupAndPerson(ctx, q, groupID, personB)
		if err != nil {
			return err
		}

		a, b := domain.NormalizedPair(pa.ID, pb.ID)
		rule = &domain.ExclusionRule{
			ID:           uuid.New(),
			GroupID:      groupID,
			ParticipantA: a,
			ParticipantB: b,
			CreatedAt:    time.Now().UTC(),
		}
		return s.ruleRepo.Create(ctx, q, rule)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Exclusion rule added", "group_id", groupID, "rule_id", rule.ID)
	return rule, nil
}

// RemoveExclusionRule deletes a rule pre-draw. Owner only.
func (s *GroupService) RemoveExclusionRule(ctx context.Context, requesterPersonID, groupID, ruleID uuid.UUID) error {
	return s.tx.InTx(ctx, func(q repository.Querier) error {
		group, err := s.groupRepo.GetByIDForUpdate(ctx, q, groupID)
		if err != nil {
			return err
		}
		if group.IsDrawn() {
			return domain.ErrGroupDrawn
		}
		if group.OwnerPersonID != requesterPersonID {
			return domain.ErrForbidden
		}

		rule, err := s.ruleRepo.GetByID(ctx, q, ruleID)
		if err != nil {
			return err
		}
		if rule.GroupID != groupID {
			return domain.ErrNotFound
		}
		return s.ruleRepo.Delete(ctx, q, ruleID)
	})
}
