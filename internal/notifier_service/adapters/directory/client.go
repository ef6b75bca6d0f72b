package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Person is the identity layer's view of a user, as far as the notifier needs.
type Person struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

// Client resolves person IDs against the identity service collaborator.
type Client interface {
	GetPerson(ctx context.Context, id uuid.UUID) (*Person, error)
}

// HTTPClient talks to the identity service's person endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  logger.With("adapter", "directory"),
	}
}

func (c *HTTPClient) GetPerson(ctx context.Context, id uuid.UUID) (*Person, error) {
	url := fmt.Sprintf("%s/persons/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d for person %s", resp.StatusCode, id)
	}

	var person Person
	if err := json.NewDecoder(resp.Body).Decode(&person); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	return &person, nil
}
