// Package mail defines the mail-delivery boundary for the reset flow.
// Provider integration lives outside this service; implementations of Mailer
// are slotted in at wiring time.
package mail

import (
	"context"

	"admin-service/internal/util"
)

// Mailer delivers a reset token to an account holder. Delivery is a
// best-effort side effect after the token has committed: a send failure must
// never roll the token back, so a retry of the send alone can succeed with
// the same token.
type Mailer interface {
	SendResetToken(ctx context.Context, email, token string) error
}

// LogMailer is the development implementation: it logs the reset token
// instead of delivering it.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendResetToken(_ context.Context, email, token string) error {
	util.Info("Password reset token issued (dev mailer, not delivered)",
		util.String("email", email),
		util.String("token", token))
	return nil
}
