package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Group is a gift-exchange group. Budget and DrawnAt stay NULL until the draw;
// once DrawnAt is set it is never cleared and the budget becomes immutable.
type Group struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	OwnerPersonID uuid.UUID       `json:"owner_person_id"`
	Budget        sql.NullFloat64 `json:"budget,omitempty"`
	DrawnAt       sql.NullTime    `json:"drawn_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsDrawn reports whether the group's one-time draw has been committed.
func (g *Group) IsDrawn() bool {
	return g.DrawnAt.Valid
}

// Participant is a membership record. A person appears at most once per group.
// Wish content remains editable after the draw; everything else freezes.
type Participant struct {
	ID               uuid.UUID       `json:"id"`
	GroupID          uuid.UUID       `json:"group_id"`
	PersonID         uuid.UUID       `json:"person_id"`
	BudgetSuggestion sql.NullFloat64 `json:"budget_suggestion,omitempty"`
	WishContent      sql.NullString  `json:"wish_content,omitempty"`
	WishUpdatedAt    sql.NullTime    `json:"wish_updated_at,omitempty"`
	JoinedAt         time.Time       `json:"joined_at"`
}

// ExclusionRule forbids the giver→recipient edge between two participants in
// both directions. Stored with ParticipantA < ParticipantB (byte order) so a
// pair cannot be duplicated in reverse.
type ExclusionRule struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	ParticipantA uuid.UUID `json:"participant_a"`
	ParticipantB uuid.UUID `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizedPair returns the pair ordered so A < B.
func NormalizedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

// Assignment is one giver→recipient edge of a committed draw. Created only by
// the draw transition, in one batch, never updated or deleted individually.
type Assignment struct {
	ID                     uuid.UUID `json:"id"`
	GroupID                uuid.UUID `json:"group_id"`
	GiverParticipantID     uuid.UUID `json:"giver_participant_id"`
	RecipientParticipantID uuid.UUID `json:"recipient_participant_id"`
	CreatedAt              time.Time `json:"created_at"`
}
