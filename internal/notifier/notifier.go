package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is reported by a channel whose provider settings are
// absent. Callers treat any send error as a failure outcome, never as a
// reason to abort the primary operation.
var ErrNotConfigured = errors.New("notification channel not configured")

// EmailSender delivers mail to one or more recipients.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// SMSSender delivers a short text to a single phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, body string) error
}
