package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftring/backend/internal/exchange_service/domain"
)

// CreateGroupRequestDTO defines the payload for creating a group.
type CreateGroupRequestDTO struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// TriggerDrawRequestDTO carries the final budget committed with the draw.
type TriggerDrawRequestDTO struct {
	Budget float64 `json:"budget" validate:"required,gt=0"`
}

// AddExclusionRuleRequestDTO names the two people who must not draw each other.
type AddExclusionRuleRequestDTO struct {
	PersonA uuid.UUID `json:"person_a" validate:"required"`
	PersonB uuid.UUID `json:"person_b" validate:"required"`
}

// UpdateWishRequestDTO replaces the caller's wish content.
type UpdateWishRequestDTO struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// BudgetSuggestionRequestDTO records an anonymous budget suggestion.
type BudgetSuggestionRequestDTO struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// GroupResponseDTO is the public shape of a group.
type GroupResponseDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	OwnerPersonID uuid.UUID  `json:"owner_person_id"`
	Budget        *float64   `json:"budget,omitempty"`
	DrawnAt       *time.Time `json:"drawn_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ParticipantResponseDTO deliberately omits the budget suggestion; suggestions
// stay anonymous.
type ParticipantResponseDTO struct {
	ID       uuid.UUID `json:"id"`
	PersonID uuid.UUID `json:"person_id"`
	HasWish  bool      `json:"has_wish"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupDetailResponseDTO bundles a group with its membership.
type GroupDetailResponseDTO struct {
	Group        GroupResponseDTO         `json:"group"`
	Participants []ParticipantResponseDTO `json:"participants"`
}

// ExclusionRuleResponseDTO is the public shape of an exclusion rule.
type ExclusionRuleResponseDTO struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	ParticipantA uuid.UUID `json:"participant_a"`
	ParticipantB uuid.UUID `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenericErrorResponse for API errors.
type GenericErrorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func groupToResponseDTO(group *domain.Group) GroupResponseDTO {
	dto := GroupResponseDTO{
		ID:            group.ID,
		Name:          group.Name,
		OwnerPersonID: group.OwnerPersonID,
		CreatedAt:     group.CreatedAt,
	}
	if group.Budget.Valid {
		budget := group.Budget.Float64
		dto.Budget = &budget
	}
	if group.DrawnAt.Valid {
		drawnAt := group.DrawnAt.Time
		dto.DrawnAt = &drawnAt
	}
	return dto
}

func participantToResponseDTO(p *domain.Participant) ParticipantResponseDTO {
	return ParticipantResponseDTO{
		ID:       p.ID,
		PersonID: p.PersonID,
		HasWish:  p.WishContent.Valid,
		JoinedAt: p.JoinedAt,
	}
}

func ruleToResponseDTO(rule *domain.ExclusionRule) ExclusionRuleResponseDTO {
	return ExclusionRuleResponseDTO{
		ID:           rule.ID,
		GroupID:      rule.GroupID,
		ParticipantA: rule.ParticipantA,
		ParticipantB: rule.ParticipantB,
		CreatedAt:    rule.CreatedAt,
	}
}
