package notification

import (
	"context"
	"log/slog"
)

// LogProvider writes reminders to the structured log. It is the fallback
// delivery path when no SMTP configuration is present, so fired reminders
// are never silently lost.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider creates a LogProvider.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

// Name returns the provider identifier.
func (p *LogProvider) Name() string { return "log" }

// Send writes the reminder to the log.
func (p *LogProvider) Send(_ context.Context, msg Message) error {
	p.logger.Info("maintenance reminder", "subject", msg.Subject, "body", msg.Body)
	return nil
}
