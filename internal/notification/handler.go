package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/retroshelf/retroshelf/internal/eventbus"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 30 * time.Second

// Handler receives engine events from the bus and delivers fired reminders
// through the configured provider. Delivery failures are logged, never
// propagated: the reminder already exists in the notification history and
// the owner can still see it there.
type Handler struct {
	provider Provider
	logger   *slog.Logger
}

// NewHandler creates a Handler delivering through provider.
func NewHandler(provider Provider, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, logger: logger}
}

// Handle processes one bus event. Only reminder-fired events are delivered.
func (h *Handler) Handle(e eventbus.Event) {
	if e.Type != eventbus.EventReminderFired {
		return
	}

	msg := Message{
		Subject: e.Payload["title"],
		Body:    e.Payload["body"],
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := h.provider.Send(ctx, msg); err != nil {
		h.logger.Error("reminder delivery failed",
			"provider", h.provider.Name(),
			"item_id", e.Payload["item_id"],
			"error", err)
		return
	}
	h.logger.Info("reminder delivered",
		"provider", h.provider.Name(),
		"item_id", e.Payload["item_id"],
		"subject", msg.Subject)
}
