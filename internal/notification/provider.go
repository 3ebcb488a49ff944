// Package notification delivers fired maintenance reminders to the owner.
// The engine records and schedules reminders; this package is only the
// delivery transport (email via SMTP, or the structured log when email is
// not configured).
package notification

import "context"

// Message is the content to be delivered by a Provider.
type Message struct {
	Subject string
	Body    string
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}
