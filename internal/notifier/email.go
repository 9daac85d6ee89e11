package notifier

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/identity-api/config"
)

type smtpSender struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

// NewEmailSender builds an SMTP-backed sender. With no host configured the
// returned sender reports ErrNotConfigured on every send.
func NewEmailSender(cfg config.SMTPConfig) EmailSender {
	if cfg.Host == "" {
		return &smtpSender{cfg: cfg}
	}
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	// gomail has no context support; honor cancellation before dialing.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
