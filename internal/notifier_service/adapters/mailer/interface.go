package mailer

import "context"

// TemplateType selects the mail template rendered by the transport.
type TemplateType string

const (
	TemplateOutcomeReady TemplateType = "outcome_ready"
	TemplateWishUpdated  TemplateType = "wish_updated"
)

// SendRequest holds everything the mail transport needs for one message.
type SendRequest struct {
	Recipient string            // email address
	Template  TemplateType
	Data      map[string]string // template variables
}

// SendResult holds the outcome of a successful submission.
type SendResult struct {
	ProviderMessageID string
	StatusCode        int
}

// Adapter is the mail-transport collaborator. Implementations must honor the
// context deadline; a timeout is a delivery failure like any other.
type Adapter interface {
	Send(ctx context.Context, request SendRequest) (*SendResult, error)
	GetName() string
}
