package notification

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the log. It is the fallback when no
// Kafka brokers are configured and keeps development runs dependency-free.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"user_id", n.UserID,
		"event_id", n.EventID,
		"subject", n.Subject,
	)
	return nil
}
