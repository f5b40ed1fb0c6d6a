// internal/provider/provider.go
package provider

import "context"

// Attachment is an opaque rendered document attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email as handed to a delivery provider.
type Message struct {
	To          string
	ToName      string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Provider is the delivery seam: send one email, report remaining daily
// quota, refresh credentials after an auth failure. Real integrations
// (SES, SparkPost, SMTP relays) live behind this interface.
type Provider interface {
	Name() string
	// Send delivers one message and returns the provider message id.
	// Failures should be *Error values so the retry manager can classify them.
	Send(ctx context.Context, msg *Message) (string, error)
	// RemainingQuota reports how many sends the provider will still accept today.
	RemainingQuota(ctx context.Context) (int, error)
	// RefreshCredentials re-authenticates after a token error.
	RefreshCredentials(ctx context.Context) error
}
