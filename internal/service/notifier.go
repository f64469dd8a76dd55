package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"schoolhub/internal/model"
)

// ResetNotifier delivers a password reset token to its owner. Email or SMS
// delivery plugs in here.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user *model.User, token string, expiresAt time.Time) error
}

// LogResetNotifier records that a reset was requested. The token is written
// to the log only when includeToken is set, which config refuses in
// production; it makes the reset flow usable in development without a mailer.
type LogResetNotifier struct {
	logger       zerolog.Logger
	includeToken bool
}

// NewLogResetNotifier creates a notifier that only logs.
func NewLogResetNotifier(logger zerolog.Logger, includeToken bool) *LogResetNotifier {
	return &LogResetNotifier{logger: logger, includeToken: includeToken}
}

// NotifyPasswordReset implements ResetNotifier.
func (n *LogResetNotifier) NotifyPasswordReset(ctx context.Context, user *model.User, token string, expiresAt time.Time) error {
	event := n.logger.Info().
		Str("user_id", user.ID.String()).
		Time("expires_at", expiresAt)
	if n.includeToken {
		event = event.Str("reset_token", token)
	}
	event.Msg("password reset requested")
	return nil
}
