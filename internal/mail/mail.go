package mail

import (
	"context"

	"go.uber.org/zap"
)

// Message is a delivery request handed to the email provider. The form
// link is already embedded in the body; content formatting belongs to
// the provider integration, not to the invitation engine.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender is the email delivery collaborator. Any error is treated by
// the invitation engine as a delivery failure and transitions the
// invitation to FAILED.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs deliveries instead of sending them. Used in
// development and as the default when no provider is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info("Email delivery (log sender)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
