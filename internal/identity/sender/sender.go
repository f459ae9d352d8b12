// Package sender delivers verification codes and reset links.
package sender

import (
	"context"
	"fmt"

	"github.com/campusworks/acadia/internal/identity/domain"
	"go.uber.org/zap"
)

// LogSender writes codes to the service log. It stands in until an SMTP or
// push channel is wired; the log line carries everything support needs to
// unblock a user.
type LogSender struct {
	log       *zap.Logger
	clientURL string
}

func NewLogSender(log *zap.Logger, clientURL string) domain.CodeSender {
	return &LogSender{log: log.Named("identity.sender"), clientURL: clientURL}
}

func (s *LogSender) SendOTP(_ context.Context, email, code string) error {
	s.log.Info("verification code issued",
		zap.String("email", email),
		zap.String("code", code))
	return nil
}

func (s *LogSender) SendResetLink(_ context.Context, email, token string) error {
	s.log.Info("password reset link issued",
		zap.String("email", email),
		zap.String("link", fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, token)))
	return nil
}
