package email

import (
	"context"
	"errors"
)

// Sender delivers transactional mail. Sends are fire-and-forget from the
// caller's perspective: a failed send is logged, never propagated into the
// transaction that created the thing being announced.
type Sender interface {
	SendInvite(ctx context.Context, toEmail, roleName, inviteURL string) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender stands in when SMTP is not configured.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendInvite(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
