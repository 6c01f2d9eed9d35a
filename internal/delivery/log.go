package delivery

import (
	"context"
	"log/slog"
)

// LogSender writes publications to the log instead of a real channel.
// Used when no Telegram credentials are configured, so the scheduler can
// run end to end in development.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log.With("component", "log_sender")}
}

func (s *LogSender) Send(_ context.Context, m *Message) (*Result, error) {
	s.log.Info("publication (dry run)",
		"post_id", m.PostID,
		"company", m.CompanyName,
		"title", m.Title,
	)
	return &Result{}, nil
}
