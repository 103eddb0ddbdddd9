// Package notify — исходящие уведомления пользователям.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Sender доставляет сообщение получателю (email, мессенджер и т.п.).
type Sender interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// LogSender только пишет уведомление в лог.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Notify(_ context.Context, recipient, subject, body string) error {
	s.logger.Info("notification",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}
