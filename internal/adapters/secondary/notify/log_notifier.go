package notify

import (
	"context"
	"log/slog"

	"github.com/pilahub/queue-backend/internal/core/ports"
)

// LogNotifier is a secondary adapter that records notification signals in the
// log instead of pushing to a device. Ticket holders receive the actual signal
// over their WebSocket subscription; this adapter exists so a push provider
// can be swapped in behind the same port.
type LogNotifier struct {
	logger *slog.Logger
}

// Ensure LogNotifier implements the ports.Notifier interface.
var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a new log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With("component", "notifier"),
	}
}

// Notify logs the signal. It runs on a background context because callers
// fire it from a goroutine that may outlive the originating request.
func (n *LogNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	n.logger.InfoContext(ctx, "notification signal",
		"queue_id", params.QueueID,
		"ticket_id", params.TicketID,
		"ticket_number", params.TicketNumber,
		"message", params.Message,
	)
}
