package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/giftring/backend/internal/notifier_service/adapters/directory"
	"github.com/giftring/backend/internal/notifier_service/adapters/mailer"
	"github.com/giftring/backend/internal/notifier_service/domain"
	"github.com/giftring/backend/internal/platform/messagebroker"
)

var (
	intentsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notifier",
			Name:      "intents_processed_total",
			Help:      "Total number of notification intents processed by the delivery worker.",
		},
		[]string{"intent_type", "status"},
	)
	intentDeliveryDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notifier",
			Name:      "intent_delivery_duration_seconds",
			Help:      "Duration of intent delivery attempts.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"intent_type"},
	)
)

// SubjectDeliveryExhausted is published when an intent runs out of attempts,
// so operators see terminal failures without grepping the table.
const SubjectDeliveryExhausted = "notifications.delivery.exhausted"

// WorkerConfig holds the delivery worker's tunables. Interval and batch size
// affect throughput, not correctness.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	ClaimTimeout time.Duration
	MailTimeout  time.Duration
}

// DeliveryWorker drains due notification intents and hands them to the mail
// transport, recording per-intent outcomes with retry and backoff.
type DeliveryWorker struct {
	repo      domain.NotificationIntentRepository
	reader    domain.ExchangeReader
	directory directory.Client
	mailer    mailer.Adapter
	publisher messagebroker.Publisher
	logger    *slog.Logger
	config    WorkerConfig
}

func NewDeliveryWorker(
	repo domain.NotificationIntentRepository,
	reader domain.ExchangeReader,
	dir directory.Client,
	mail mailer.Adapter,
	publisher messagebroker.Publisher,
	logger *slog.Logger,
	cfg WorkerConfig,
) *DeliveryWorker {
	return &DeliveryWorker{
		repo:      repo,
		reader:    reader,
		directory: dir,
		mailer:    mail,
		publisher: publisher,
		logger:    logger.With("worker", "delivery"),
		config:    cfg,
	}
}

// PollAndDeliver claims one batch of due intents and attempts delivery for
// each. It returns the per-tick outcome rather than keeping ambient counters;
// Prometheus metrics are updated alongside. A claimed intent whose status
// update is interrupted mid-batch is re-delivered after the claim timeout, so
// nothing is silently lost on shutdown.
func (w *DeliveryWorker) PollAndDeliver(ctx context.Context) (processed, failed int, err error) {
	now := time.Now().UTC()
	intents, acquireErr := w.repo.AcquireDue(ctx, now, w.config.ClaimTimeout, w.config.MaxAttempts, w.config.BatchSize)
	if acquireErr != nil {
		if errors.Is(acquireErr, domain.ErrNoDueIntents) {
			return 0, 0, nil
		}
		w.logger.ErrorContext(ctx, "Failed to acquire due intents", "error", acquireErr)
		return 0, 0, fmt.Errorf("failed to acquire due intents: %w", acquireErr)
	}

	w.logger.InfoContext(ctx, "Acquired intents for delivery", "count", len(intents))

	for _, intent := range intents {
		processed++

		// A recovered stale claim can already be past the attempt cap when the
		// worker crashed during the final attempt. Close it out terminally
		// instead of sending again.
		if intent.AttemptCount > w.config.MaxAttempts {
			failed++
			lastError := intent.LastError
			if !lastError.Valid {
				lastError = sql.NullString{String: "delivery attempts exhausted", Valid: true}
			}
			w.logger.WarnContext(ctx, "Recovered intent past the attempt cap",
				"intent_id", intent.ID, "attempts", intent.AttemptCount)
			if err := w.repo.MarkFailed(ctx, intent.ID, lastError); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark intent terminal-failed", "intent_id", intent.ID, "error", err)
			}
			w.publishExhausted(ctx, intent, errors.New(lastError.String))
			intentsProcessedCounter.WithLabelValues(string(intent.Type), "exhausted").Inc()
			continue
		}

		timer := prometheus.NewTimer(intentDeliveryDurationHist.WithLabelValues(string(intent.Type)))
		deliveryErr := w.deliver(ctx, intent)
		timer.ObserveDuration()

		if deliveryErr == nil {
			if err := w.repo.MarkSent(ctx, intent.ID, time.Now().UTC()); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark intent sent", "intent_id", intent.ID, "error", err)
			}
			intentsProcessedCounter.WithLabelValues(string(intent.Type), "sent").Inc()
			continue
		}

		failed++
		lastError := sql.NullString{String: deliveryErr.Error(), Valid: true}
		w.logger.WarnContext(ctx, "Intent delivery failed",
			"intent_id", intent.ID, "attempt", intent.AttemptCount, "error", deliveryErr)

		if intent.AttemptCount < w.config.MaxAttempts {
			nextAttempt := time.Now().UTC().Add(backoffDelay(w.config.BaseBackoff, intent.AttemptCount))
			if err := w.repo.MarkForRetry(ctx, intent.ID, nextAttempt, lastError); err != nil {
				w.logger.ErrorContext(ctx, "Failed to schedule intent retry", "intent_id", intent.ID, "error", err)
			}
			intentsProcessedCounter.WithLabelValues(string(intent.Type), "retry").Inc()
		} else {
			if err := w.repo.MarkFailed(ctx, intent.ID, lastError); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark intent terminal-failed", "intent_id", intent.ID, "error", err)
			}
			w.publishExhausted(ctx, intent, deliveryErr)
			intentsProcessedCounter.WithLabelValues(string(intent.Type), "exhausted").Inc()
		}
	}

	return processed, failed, nil
}

// deliver resolves recipient and content, then calls the mail transport with
// a bounded timeout.
func (w *DeliveryWorker) deliver(ctx context.Context, intent *domain.NotificationIntent) error {
	person, err := w.directory.GetPerson(ctx, intent.PersonID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	data, template, err := w.buildContent(ctx, intent, person)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.config.MailTimeout)
	defer cancel()

	if _, err := w.mailer.Send(sendCtx, mailer.SendRequest{
		Recipient: person.Email,
		Template:  template,
		Data:      data,
	}); err != nil {
		return fmt.Errorf("mail transport: %w", err)
	}
	return nil
}

func (w *DeliveryWorker) buildContent(ctx context.Context, intent *domain.NotificationIntent, person *directory.Person) (map[string]string, mailer.TemplateType, error) {
	group, err := w.reader.GetGroupSummary(ctx, intent.GroupID)
	if err != nil {
		return nil, "", fmt.Errorf("load group summary: %w", err)
	}

	data := map[string]string{
		"recipient_name": person.DisplayName,
		"group_name":     group.Name,
	}
	if group.Budget.Valid {
		data["budget"] = strconv.FormatFloat(group.Budget.Float64, 'f', 2, 64)
	}

	switch intent.Type {
	case domain.IntentTypeOutcomeReady:
		assignment, err := w.reader.GetAssignmentSummary(ctx, intent.GroupID, intent.PersonID)
		if err != nil {
			return nil, "", fmt.Errorf("load assignment summary: %w", err)
		}
		drawee, err := w.directory.GetPerson(ctx, assignment.RecipientPersonID)
		if err != nil {
			return nil, "", fmt.Errorf("resolve drawn recipient: %w", err)
		}
		data["drawn_name"] = drawee.DisplayName
		if assignment.RecipientWish.Valid {
			data["drawn_wish"] = assignment.RecipientWish.String
		}
		return data, mailer.TemplateOutcomeReady, nil

	case domain.IntentTypeWishUpdated:
		return data, mailer.TemplateWishUpdated, nil

	default:
		return nil, "", fmt.Errorf("unknown intent type: %s", intent.Type)
	}
}

func (w *DeliveryWorker) publishExhausted(ctx context.Context, intent *domain.NotificationIntent, deliveryErr error) {
	if w.publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"intent_id":   intent.ID,
		"intent_type": intent.Type,
		"group_id":    intent.GroupID,
		"person_id":   intent.PersonID,
		"attempts":    intent.AttemptCount,
		"last_error":  deliveryErr.Error(),
	})
	if err != nil {
		return
	}
	if err := w.publisher.Publish(ctx, SubjectDeliveryExhausted, payload); err != nil {
		w.logger.WarnContext(ctx, "Failed to publish exhausted-intent event", "intent_id", intent.ID, "error", err)
	}
}

// backoffDelay implements exponential backoff: base * 2^(attempts-1).
func backoffDelay(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return base << uint(attempts-1)
}
