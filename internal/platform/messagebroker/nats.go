package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of the NATS client used by application code.
// Declared here so app packages can mock publishing in unit tests.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSClient wraps a core NATS connection.
type NATSClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSClient connects to NATS with reconnect handling.
// natsURL example: "nats://localhost:4222"
func NewNATSClient(natsURL string, logger *slog.Logger, appName string) (*NATSClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Error("NATS connection closed", "error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSClient{conn: nc, logger: logger}, nil
}

// Publish sends data to a subject. The context is honored only up-front;
// core NATS publishes are buffered and non-blocking.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (c *NATSClient) Close() {
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Drain()
		c.conn.Close()
	}
}
