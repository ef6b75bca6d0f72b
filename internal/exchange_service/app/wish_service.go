package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/giftring/backend/internal/exchange_service/domain"
	"github.com/giftring/backend/internal/exchange_service/repository"
	notifierdomain "github.com/giftring/backend/internal/notifier_service/domain"
)

// WishService updates wish content and schedules the debounced wish-updated
// notification for the editor's assigned giver.
type WishService struct {
	tx              repository.TxRunner
	groupRepo       repository.GroupRepository
	participantRepo repository.ParticipantRepository
	assignmentRepo  repository.AssignmentRepository
	intentWriter    repository.NotificationIntentWriter
	notifyDelay     time.Duration
	logger          *slog.Logger
}

func NewWishService(
	tx repository.TxRunner,
	groupRepo repository.GroupRepository,
	participantRepo repository.ParticipantRepository,
	assignmentRepo repository.AssignmentRepository,
	intentWriter repository.NotificationIntentWriter,
	notifyDelay time.Duration,
	logger *slog.Logger,
) *WishService {
	return &WishService{
		tx:              tx,
		groupRepo:       groupRepo,
		participantRepo: participantRepo,
		assignmentRepo:  assignmentRepo,
		intentWriter:    intentWriter,
		notifyDelay:     notifyDelay,
		logger:          logger.With("service", "wish"),
	}
}

// UpdateWish stores the caller's wish content. Wish content stays editable
// after the draw; once the group is drawn, the editor's giver gets a
// wish-updated intent scheduled at edit time + the debounce delay. An unsent
// intent already waiting for the same (group, giver) pair suppresses a new
// one, collapsing bursts of edits into a single notification.
func (s *WishService) UpdateWish(ctx context.Context, personID, groupID uuid.UUID, content string) error {
	if content == "" {
		return &domain.ValidationError{Message: "wish content must not be empty"}
	}

	return s.tx.InTx(ctx, func(q repository.Querier) error {
		group, err := s.groupRepo.GetByID(ctx, q, groupID)
		if err != nil {
			return err
		}

		editor, err := s.participantRepo.GetByGroupAndPerson(ctx, q, groupID, personID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrForbidden
			}
			return err
		}

		now := time.Now().UTC()
		if err := s.participantRepo.UpdateWish(ctx, q, editor.ID, content, now); err != nil {
			return err
		}

		if !group.IsDrawn() {
			// Nobody is watching this wishlist until assignments exist.
			return nil
		}

		assignment, err := s.assignmentRepo.GetByRecipient(ctx, q, groupID, editor.ID)
		if err != nil {
			return err
		}
		giver, err := s.participantRepo.GetByID(ctx, q, assignment.GiverParticipantID)
		if err != nil {
			return err
		}

		pending, err := s.intentWriter.HasUnsentWishIntent(ctx, q, groupID, giver.PersonID)
		if err != nil {
			return err
		}
		if pending {
			s.logger.DebugContext(ctx, "Wish-updated intent already pending, skipping",
				"group_id", groupID, "person_id", giver.PersonID)
			return nil
		}

		intent := notifierdomain.NewNotificationIntent(
			notifierdomain.IntentTypeWishUpdated, giver.PersonID, groupID, now.Add(s.notifyDelay))
		return s.intentWriter.Create(ctx, q, intent)
	})
}
