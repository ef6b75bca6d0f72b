package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// IntentType identifies what the notification is about.
type IntentType string

const (
	// IntentTypeOutcomeReady tells a participant their draw result is available.
	IntentTypeOutcomeReady IntentType = "outcome_ready"
	// IntentTypeWishUpdated tells a participant that someone's wish changed.
	IntentTypeWishUpdated IntentType = "wish_updated"
)

// IntentStatus tracks an intent through the delivery pipeline.
type IntentStatus string

const (
	StatusPending IntentStatus = "pending" // waiting for its scheduled time
	StatusSending IntentStatus = "sending" // claimed by a worker
	StatusSent    IntentStatus = "sent"    // delivered, terminal
	StatusFailed  IntentStatus = "failed"  // attempts exhausted, terminal
)

// NotificationIntent is a durable record of a not-yet-confirmed outbound
// message. Intents are never deleted; sent and failed intents remain for audit.
type NotificationIntent struct {
	ID             uuid.UUID      `json:"id"`
	Type           IntentType     `json:"type"`
	PersonID       uuid.UUID      `json:"person_id"`
	GroupID        uuid.UUID      `json:"group_id"`
	Status         IntentStatus   `json:"status"`
	ScheduledAt    time.Time      `json:"scheduled_at"`
	SentAt         sql.NullTime   `json:"sent_at,omitempty"`
	AttemptCount   int            `json:"attempt_count"`
	LastError      sql.NullString `json:"last_error,omitempty"`
	FirstAttemptAt sql.NullTime   `json:"first_attempt_at,omitempty"`
	LastAttemptAt  sql.NullTime   `json:"last_attempt_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewNotificationIntent creates a pending intent scheduled for scheduledAt.
func NewNotificationIntent(intentType IntentType, personID, groupID uuid.UUID, scheduledAt time.Time) *NotificationIntent {
	now := time.Now().UTC()
	return &NotificationIntent{
		ID:          uuid.New(),
		Type:        intentType,
		PersonID:    personID,
		GroupID:     groupID,
		Status:      StatusPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
