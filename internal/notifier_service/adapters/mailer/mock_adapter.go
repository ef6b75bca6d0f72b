package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockAdapter is a simulated mail transport for testing and development.
type MockAdapter struct {
	logger       *slog.Logger
	name         string
	failRate     float64 // chance to simulate failure (0.0 to 1.0)
	minLatencyMs int
	maxLatencyMs int
}

func NewMockAdapter(logger *slog.Logger, failRate float64, minLatencyMs, maxLatencyMs int) Adapter {
	return &MockAdapter{
		logger:       logger.With("mailer", "mock"),
		name:         "mock",
		failRate:     failRate,
		minLatencyMs: minLatencyMs,
		maxLatencyMs: maxLatencyMs,
	}
}

func (m *MockAdapter) Send(ctx context.Context, request SendRequest) (*SendResult, error) {
	latency := time.Duration(m.minLatencyMs) * time.Millisecond
	if m.maxLatencyMs > m.minLatencyMs {
		latency += time.Duration(rand.Intn(m.maxLatencyMs-m.minLatencyMs)) * time.Millisecond
	}
	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < m.failRate {
		m.logger.WarnContext(ctx, "Simulated mail delivery failure", "recipient", request.Recipient)
		return nil, fmt.Errorf("mock transport: simulated delivery failure")
	}

	m.logger.InfoContext(ctx, "Mock mail delivered",
		"recipient", request.Recipient, "template", request.Template)
	return &SendResult{
		ProviderMessageID: uuid.NewString(),
		StatusCode:        200,
	}, nil
}

func (m *MockAdapter) GetName() string {
	return m.name
}
