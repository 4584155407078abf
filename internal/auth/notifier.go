package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/logging"
)

// Notifier delivers an OTP code to a phone number
type Notifier interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogNotifier stands in for an SMS gateway: it records the dispatch and never the code.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendCode logs the dispatch
func (n *LogNotifier) SendCode(_ context.Context, phone, _ string) error {
	n.logger.Info("otp dispatched", logging.Phone(phone), zap.String("channel", "log"))
	return nil
}
