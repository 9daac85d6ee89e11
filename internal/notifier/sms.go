package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jwalitptl/identity-api/config"
)

type httpSMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

// NewSMSSender builds a sender against a generic JSON SMS gateway. With no
// API URL configured the returned sender reports ErrNotConfigured on every
// send.
func NewSMSSender(cfg config.SMSConfig) SMSSender {
	return &httpSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *httpSMSSender) Send(ctx context.Context, phone, body string) error {
	if s.cfg.APIURL == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"to":     phone,
		"from":   s.cfg.Sender,
		"body":   body,
		"apikey": s.cfg.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
