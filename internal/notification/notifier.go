// Package notification delivers market messages to external channels
// (Telegram, webhooks) and builds their text.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Format is a rendering hint for the receiving channel.
type Format string

const (
	FormatPlain Format = ""
	FormatHTML  Format = "HTML"
)

// Message is one outbound notification. An empty ChatID means the
// notifier's configured default target.
type Message struct {
	ChatID string
	Text   string
	Format Format
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers a message. Returns error if delivery fails.
	Send(ctx context.Context, msg Message) error
}

// SendError reports a failed delivery. It is logged, never retried.
type SendError struct {
	Channel string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notification: %s: %v", e.Channel, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// LogNotifier writes messages to the logger (useful for development).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification", "chat_id", msg.ChatID, "text", msg.Text)
	return nil
}

// Multi sends every message to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
