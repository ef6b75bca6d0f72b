package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/draw"
	"github.com/giftring/backend/internal/exchange_service/repository"
	notifierdomain "github.com/giftring/backend/internal/notifier_service/domain"
	"github.com/giftring/backend/internal/platform/messagebroker"
)

const (
	// maxBudget bounds the final budget to a sane currency value.
	maxBudget = 1_000_000.0

	// SubjectGroupDrawn is published after a draw commits, for operational
	// fan-out only; the transactional notification intents are the source of
	// truth for participant delivery.
	SubjectGroupDrawn = "exchange.group.drawn"
)

// DrawSummary is returned to the owner after a successful draw.
type DrawSummary struct {
	GroupID          uuid.UUID `json:"group_id"`
	ParticipantCount int       `json:"participant_count"`
	Budget           float64   `json:"budget"`
	DrawnAt          time.Time `json:"drawn_at"`
}

// AssignmentView is a participant's own outcome once the group is drawn.
type AssignmentView struct {
	GroupID           uuid.UUID `json:"group_id"`
	GroupName         string    `json:"group_name"`
	Budget            float64   `json:"budget"`
	RecipientPersonID uuid.UUID `json:"recipient_person_id"`
	RecipientWish     string    `json:"recipient_wish,omitempty"`
}

// DrawService owns the one-time Open→Drawn transition of a group and the
// read paths around it.
type DrawService struct {
	db              repository.Querier
	tx              repository.TxRunner
	groupRepo       repository.GroupRepository
	participantRepo repository.ParticipantRepository
	ruleRepo        repository.ExclusionRuleRepository
	assignmentRepo  repository.AssignmentRepository
	intentWriter    repository.NotificationIntentWriter
	publisher       messagebroker.Publisher
	logger          *slog.Logger
}

func NewDrawService(
	db repository.Querier,
	tx repository.TxRunner,
	groupRepo repository.GroupRepository,
	participantRepo repository.ParticipantRepository,
	ruleRepo repository.ExclusionRuleRepository,
	assignmentRepo repository.AssignmentRepository,
	intentWriter repository.NotificationIntentWriter,
	publisher messagebroker.Publisher,
	logger *slog.Logger,
) *DrawService {
	return &DrawService{
		db:              db,
		tx:              tx,
		groupRepo:       groupRepo,
		participantRepo: participantRepo,
		ruleRepo:        ruleRepo,
		assignmentRepo:  assignmentRepo,
		intentWriter:    intentWriter,
		publisher:       publisher,
		logger:          logger.With("service", "draw"),
	}
}

// ValidateDraw reports whether the group's current participants and exclusion
// rules admit a complete valid assignment. Any group member may ask.
func (s *DrawService) ValidateDraw(ctx context.Context, requesterPersonID, groupID uuid.UUID) (*draw.ValidationResult, error) {
	if _, err := s.groupRepo.GetByID(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	if _, err := s.participantRepo.GetByGroupAndPerson(ctx, s.db, groupID, requesterPersonID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}

	participants, err := s.participantRepo.ListByGroup(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	rules, err := s.ruleRepo.ListByGroup(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}

	ids, pairs := toDrawInputs(participants, rules)
	result := draw.Validate(ids, pairs)
	return &result, nil
}

// TriggerDraw executes the Open→Drawn transition inside one transaction:
// guard re-check under a row lock, owner check, live feasibility validation,
// the draw itself, the assignment batch, the group's budget + drawn_at, and
// one outcome-ready intent per participant. Any failure rolls everything back
// and leaves the group Open.
func (s *DrawService) TriggerDraw(ctx context.Context, requesterPersonID, groupID uuid.UUID, budget float64) (*DrawSummary, error) {
	if err := validateBudget(budget); err != nil {
		return nil, err
	}

	var summary *DrawSummary
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		group, err := s.groupRepo.GetByIDForUpdate(ctx, q, groupID)
		if err != nil {
			return err
		}
		if group.IsDrawn() {
			return domain.ErrAlreadyDrawn
		}
		if group.OwnerPersonID != requesterPersonID {
			return domain.ErrForbidden
		}

		participants, err := s.participantRepo.ListByGroup(ctx, q, groupID)
		if err != nil {
			return err
		}
		rules, err := s.ruleRepo.ListByGroup(ctx, q, groupID)
		if err != nil {
			return err
		}

		ids, pairs := toDrawInputs(participants, rules)
		validation := draw.Validate(ids, pairs)
		if !validation.Feasible {
			return &domain.InfeasibleError{Violations: validation.Errors}
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		permutation, err := draw.Draw(ids, pairs, rng)
		if err != nil {
			if errors.Is(err, draw.ErrInfeasible) {
				return &domain.InfeasibleError{Violations: []string{err.Error()}}
			}
			return err
		}

		now := time.Now().UTC()

		assignments := make([]*domain.Assignment, 0, len(participants))
		for giver, recipient := range permutation {
			assignments = append(assignments, &domain.Assignment{
				ID:                     uuid.New(),
				GroupID:                groupID,
				GiverParticipantID:     giver,
				RecipientParticipantID: recipient,
				CreatedAt:              now,
			})
		}
		if err := s.assignmentRepo.CreateBatch(ctx, q, assignments); err != nil {
			return err
		}

		if err := s.groupRepo.SetDrawn(ctx, q, groupID, budget, now); err != nil {
			return err
		}

		intents := make([]*notifierdomain.NotificationIntent, 0, len(participants))
		for _, p := range participants {
			intents = append(intents, notifierdomain.NewNotificationIntent(
				notifierdomain.IntentTypeOutcomeReady, p.PersonID, groupID, now))
		}
		if err := s.intentWriter.CreateBatch(ctx, q, intents); err != nil {
			return err
		}

		summary = &DrawSummary{
			GroupID:          groupID,
			ParticipantCount: len(participants),
			Budget:           budget,
			DrawnAt:          now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDrawnEvent(ctx, summary)
	s.logger.InfoContext(ctx, "Group drawn", "group_id", groupID, "participants", summary.ParticipantCount)
	return summary, nil
}

// MyAssignment returns the caller's recipient and wish once the group is drawn.
func (s *DrawService) MyAssignment(ctx context.Context, requesterPersonID, groupID uuid.UUID) (*AssignmentView, error) {
	group, err := s.groupRepo.GetByID(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsDrawn() {
		return nil, domain.ErrNotDrawn
	}

	giver, err := s.participantRepo.GetByGroupAndPerson(ctx, s.db, groupID, requesterPersonID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByGiver(ctx, s.db, groupID, giver.ID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.participantRepo.GetByID(ctx, s.db, assignment.RecipientParticipantID)
	if err != nil {
		return nil, err
	}

	view := &AssignmentView{
		GroupID:           groupID,
		GroupName:         group.Name,
		Budget:            group.Budget.Float64,
		RecipientPersonID: recipient.PersonID,
	}
	if recipient.WishContent.Valid {
		view.RecipientWish = recipient.WishContent.String
	}
	return view, nil
}

func (s *DrawService) publishDrawnEvent(ctx context.Context, summary *DrawSummary) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal group-drawn event", "error", err, "group_id", summary.GroupID)
		return
	}
	if err := s.publisher.Publish(ctx, SubjectGroupDrawn, payload); err != nil {
		// Best effort only; intents are already committed.
		s.logger.WarnContext(ctx, "Failed to publish group-drawn event", "error", err, "group_id", summary.GroupID)
	}
}

// validateBudget enforces a positive, bounded value with at most two decimal
// units of currency precision.
func validateBudget(budget float64) error {
	if budget <= 0 {
		return &domain.ValidationError{Message: "budget must be positive"}
	}
	if budget > maxBudget {
		return &domain.ValidationError{Message: fmt.Sprintf("budget must not exceed %.0f", maxBudget)}
	}
	cents := budget * 100
	if math.Abs(cents-math.Round(cents)) > 1e-9 {
		return &domain.ValidationError{Message: "budget must have at most two decimal places"}
	}
	return nil
}

// toDrawInputs converts persistence records into the draw package's inputs,
// keyed by participant ID.
func toDrawInputs(participants []*domain.Participant, rules []*domain.ExclusionRule) ([]uuid.UUID, []draw.Pair) {
	ids := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	pairs := make([]draw.Pair, len(rules))
	for i, r := range rules {
		pairs[i] = draw.Pair{A: r.ParticipantA, B: r.ParticipantB}
	}
	return ids, pairs
}
