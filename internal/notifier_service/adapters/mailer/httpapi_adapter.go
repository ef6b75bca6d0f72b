package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// HTTPAPIAdapter submits mail through a JSON mail API (any transactional mail
// provider with a POST /send endpoint). Timeouts come from the caller's
// context; the worker bounds every send.
type HTTPAPIAdapter struct {
	baseURL     string
	apiKey      string
	fromAddress string
	client      *http.Client
	logger      *slog.Logger
}

func NewHTTPAPIAdapter(baseURL, apiKey, fromAddress string, logger *slog.Logger) Adapter {
	return &HTTPAPIAdapter{
		baseURL:     baseURL,
		apiKey:      apiKey,
		fromAddress: fromAddress,
		client:      &http.Client{},
		logger:      logger.With("mailer", "httpapi"),
	}
}

type sendPayload struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

func (a *HTTPAPIAdapter) Send(ctx context.Context, request SendRequest) (*SendResult, error) {
	payload, err := json.Marshal(sendPayload{
		From:     a.fromAddress,
		To:       request.Recipient,
		Template: string(request.Template),
		Data:     request.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mail transport request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mail transport returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Delivery was accepted; a missing message ID is not a failure.
		a.logger.WarnContext(ctx, "Could not decode mail API response", "error", err)
	}

	return &SendResult{
		ProviderMessageID: parsed.MessageID,
		StatusCode:        resp.StatusCode,
	}, nil
}

func (a *HTTPAPIAdapter) GetName() string {
	return "httpapi"
}
