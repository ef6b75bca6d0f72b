package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/giftring/backend/internal/notifier_service/adapters/directory"
	"github.com/giftring/backend/internal/notifier_service/adapters/mailer"
	"github.com/giftring/backend/internal/notifier_service/domain"
)

// --- Mocks ---

type MockIntentRepository struct {
	mock.Mock
}

func (m *MockIntentRepository) AcquireDue(ctx context.Context, dueTime time.Time, claimTimeout time.Duration, maxAttempts, limit int) ([]*domain.NotificationIntent, error) {
	args := m.Called(ctx, dueTime, claimTimeout, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.NotificationIntent), args.Error(1)
}

func (m *MockIntentRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	args := m.Called(ctx, id, sentAt)
	return args.Error(0)
}

func (m *MockIntentRepository) MarkForRetry(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, lastError sql.NullString) error {
	args := m.Called(ctx, id, nextAttemptAt, lastError)
	return args.Error(0)
}

func (m *MockIntentRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError sql.NullString) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

type MockExchangeReader struct {
	mock.Mock
}

func (m *MockExchangeReader) GetGroupSummary(ctx context.Context, groupID uuid.UUID) (*domain.GroupSummary, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GroupSummary), args.Error(1)
}

func (m *MockExchangeReader) GetAssignmentSummary(ctx context.Context, groupID, giverPersonID uuid.UUID) (*domain.AssignmentSummary, error) {
	args := m.Called(ctx, groupID, giverPersonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentSummary), args.Error(1)
}

type MockDirectoryClient struct {
	mock.Mock
}

func (m *MockDirectoryClient) GetPerson(ctx context.Context, id uuid.UUID) (*directory.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Person), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, request mailer.SendRequest) (*mailer.SendResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mailer.SendResult), args.Error(1)
}

func (m *MockMailer) GetName() string { return "mock" }

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// --- Setup ---

type workerFixture struct {
	worker    *DeliveryWorker
	repo      *MockIntentRepository
	reader    *MockExchangeReader
	directory *MockDirectoryClient
	mailer    *MockMailer
	publisher *MockPublisher
	cfg       WorkerConfig
}

func setupWorker(t *testing.T) workerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := workerFixture{
		repo:      new(MockIntentRepository),
		reader:    new(MockExchangeReader),
		directory: new(MockDirectoryClient),
		mailer:    new(MockMailer),
		publisher: new(MockPublisher),
		cfg: WorkerConfig{
			PollInterval: 30 * time.Second,
			BatchSize:    10,
			MaxAttempts:  3,
			BaseBackoff:  time.Minute,
			ClaimTimeout: 10 * time.Minute,
			MailTimeout:  5 * time.Second,
		},
	}
	f.worker = NewDeliveryWorker(f.repo, f.reader, f.directory, f.mailer, f.publisher, logger, f.cfg)
	return f
}

func claimedIntent(intentType domain.IntentType, attemptCount int) *domain.NotificationIntent {
	intent := domain.NewNotificationIntent(intentType, uuid.New(), uuid.New(), time.Now().UTC())
	intent.Status = domain.StatusSending
	intent.AttemptCount = attemptCount
	return intent
}

// --- Tests ---

func TestPollAndDeliver_NoDueIntents(t *testing.T) {
	f := setupWorker(t)
	f.repo.On("AcquireDue", mock.Anything, mock.Anything, f.cfg.ClaimTimeout, f.cfg.MaxAttempts, f.cfg.BatchSize).
		Return(nil, domain.ErrNoDueIntents)

	processed, failed, err := f.worker.PollAndDeliver(context.Background())

	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Zero(t, failed)
}

func TestPollAndDeliver_OutcomeReadySuccess(t *testing.T) {
	f := setupWorker(t)
	intent := claimedIntent(domain.IntentTypeOutcomeReady, 1)
	drawnPersonID := uuid.New()

	f.repo.On("AcquireDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.NotificationIntent{intent}, nil)
	f.directory.On("GetPerson", mock.Anything, intent.PersonID).
		Return(&directory.Person{ID: intent.PersonID, Email: "giver@example.com", DisplayName: "Giver"}, nil)
	f.reader.On("GetGroupSummary", mock.Anything, intent.GroupID).
		Return(&domain.GroupSummary{Name: "Office Exchange", Budget: sql.NullFloat64{Float64: 30, Valid: true}}, nil)
	f.reader.On("GetAssignmentSummary", mock.Anything, intent.GroupID, intent.PersonID).
		Return(&domain.AssignmentSummary{
			RecipientPersonID: drawnPersonID,
			RecipientWish:     sql.NullString{String: "wool socks", Valid: true},
		}, nil)
	f.directory.On("GetPerson", mock.Anything, drawnPersonID).
		Return(&directory.Person{ID: drawnPersonID, Email: "drawn@example.com", DisplayName: "Drawn"}, nil)

	var sent mailer.SendRequest
	f.mailer.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(mailer.SendRequest)
		}).Return(&mailer.SendResult{StatusCode: 200}, nil)
	f.repo.On("MarkSent", mock.Anything, intent.ID, mock.Anything).Return(nil)

	processed, failed, err := f.worker.PollAndDeliver(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Zero(t, failed)
	assert.Equal(t, "giver@example.com", sent.Recipient)
	assert.Equal(t, mailer.TemplateOutcomeReady, sent.Template)
	assert.Equal(t, "Drawn", sent.Data["drawn_name"])
	assert.Equal(t, "wool socks", sent.Data["drawn_wish"])
	assert.Equal(t, "30.00", sent.Data["budget"])
	f.repo.AssertCalled(t, "MarkSent", mock.Anything, intent.ID, mock.Anything)
}

func TestPollAndDeliver_TransientFailureSchedulesBackoff(t *testing.T) {
	f := setupWorker(t)
	// Second attempt failing: next delay must be base * 2^(2-1).
	intent := claimedIntent(domain.IntentTypeWishUpdated, 2)

	f.repo.On("AcquireDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.NotificationIntent{intent}, nil)
	f.directory.On("GetPerson", mock.Anything, intent.PersonID).
		Return(&directory.Person{ID: intent.PersonID, Email: "p@example.com", DisplayName: "P"}, nil)
	f.reader.On("GetGroupSummary", mock.Anything, intent.GroupID).
		Return(&domain.GroupSummary{Name: "Office Exchange"}, nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).
		Return(nil, errors.New("smtp 451 temporary failure"))

	var nextAttemptAt time.Time
	var recordedErr sql.NullString
	f.repo.On("MarkForRetry", mock.Anything, intent.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			nextAttemptAt = args.Get(2).(time.Time)
			recordedErr = args.Get(3).(sql.NullString)
		}).Return(nil)

	before := time.Now().UTC()
	processed, failed, err := f.worker.PollAndDeliver(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, failed)
	expectedDelay := 2 * f.cfg.BaseBackoff
	assert.WithinDuration(t, before.Add(expectedDelay), nextAttemptAt, 2*time.Second)
	assert.True(t, recordedErr.Valid)
	assert.Contains(t, recordedErr.String, "451")
	f.repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollAndDeliver_ExhaustedAttemptsAreTerminal(t *testing.T) {
	f := setupWorker(t)
	// AttemptCount already equals MaxAttempts after the claim.
	intent := claimedIntent(domain.IntentTypeWishUpdated, f.cfg.MaxAttempts)

	f.repo.On("AcquireDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.NotificationIntent{intent}, nil)
	f.directory.On("GetPerson", mock.Anything, intent.PersonID).
		Return(nil, errors.New("directory unavailable"))
	f.repo.On("MarkFailed", mock.Anything, intent.ID, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, SubjectDeliveryExhausted, mock.Anything).Return(nil)

	processed, failed, err := f.worker.PollAndDeliver(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, failed)
	f.repo.AssertNotCalled(t, "MarkForRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertExpectations(t)
}

func TestPollAndDeliver_RecoveredFinalAttemptCrashIsTerminal(t *testing.T) {
	f := setupWorker(t)
	// Reclaimed after a crash mid final attempt: the claim already pushed the
	// attempt count past the cap, so the intent must end failed without
	// another send.
	intent := claimedIntent(domain.IntentTypeOutcomeReady, f.cfg.MaxAttempts+1)
	intent.LastError = sql.NullString{String: "smtp 554 rejected", Valid: true}

	f.repo.On("AcquireDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.NotificationIntent{intent}, nil)

	var recordedErr sql.NullString
	f.repo.On("MarkFailed", mock.Anything, intent.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			recordedErr = args.Get(2).(sql.NullString)
		}).Return(nil)
	f.publisher.On("Publish", mock.Anything, SubjectDeliveryExhausted, mock.Anything).Return(nil)

	processed, failed, err := f.worker.PollAndDeliver(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "smtp 554 rejected", recordedErr.String)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	f.directory.AssertNotCalled(t, "GetPerson", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "MarkForRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertExpectations(t)
}

func TestPollAndDeliver_AcquireErrorIsCritical(t *testing.T) {
	f := setupWorker(t)
	f.repo.On("AcquireDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, _, err := f.worker.PollAndDeliver(context.Background())

	assert.Error(t, err)
}

func TestBackoffDelay_DoublesPerAttempt(t *testing.T) {
	base := time.Minute

	assert.Equal(t, time.Minute, backoffDelay(base, 1))
	assert.Equal(t, 2*time.Minute, backoffDelay(base, 2))
	assert.Equal(t, 4*time.Minute, backoffDelay(base, 3))
	assert.Equal(t, 8*time.Minute, backoffDelay(base, 4))
	// Defensive floor for a zero attempt count.
	assert.Equal(t, time.Minute, backoffDelay(base, 0))
}
