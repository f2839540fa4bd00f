package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/regholl2023/minitrade/internal/config"
)

// DefaultMailjetURL is the v3.1 send endpoint.
const DefaultMailjetURL = "https://api.mailjet.com/v3.1/send"

// Notifier delivers a plain-text message.
type Notifier interface {
	Send(ctx context.Context, subject, text string) error
}

// MailjetNotifier sends e-mail through the Mailjet send API.
type MailjetNotifier struct {
	APIKey    string
	APISecret string
	Sender    string
	Mailto    string
	URL       string
	Client    *http.Client
}

// NewMailjetNotifier creates a notifier from the mailjet provider settings.
func NewMailjetNotifier(cfg config.Mailjet) *MailjetNotifier {
	return &MailjetNotifier{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Sender:    cfg.Sender,
		Mailto:    cfg.Mailto,
		URL:       DefaultMailjetURL,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// New returns a Mailjet notifier, or a NoopNotifier when credentials are incomplete.
func New(cfg config.Mailjet) Notifier {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.Sender == "" || cfg.Mailto == "" {
		log.Debug("mailjet credentials incomplete, notifications disabled")
		return NoopNotifier{}
	}
	return NewMailjetNotifier(cfg)
}

type mailAddress struct {
	Email string `json:"Email"`
}

type mailMessage struct {
	From     mailAddress   `json:"From"`
	To       []mailAddress `json:"To"`
	Subject  string        `json:"Subject"`
	TextPart string        `json:"TextPart"`
}

type sendRequest struct {
	Messages []mailMessage `json:"Messages"`
}

// Send mails text to the configured recipient.
func (m *MailjetNotifier) Send(ctx context.Context, subject, text string) error {
	body, err := json.Marshal(sendRequest{Messages: []mailMessage{{
		From:     mailAddress{Email: m.Sender},
		To:       []mailAddress{{Email: m.Mailto}},
		Subject:  subject,
		TextPart: text,
	}}})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.APIKey, m.APISecret)

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailjet API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// NoopNotifier drops every message.
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, string, string) error { return nil }

// RetryBackoff is the first wait of SendWithRetry; it doubles after each failure.
var RetryBackoff = time.Second

// SendWithRetry sends a message with exponential backoff retry.
func SendWithRetry(ctx context.Context, n Notifier, subject, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := n.Send(ctx, subject, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := RetryBackoff << uint(i)
		log.WithError(err).Warnf("notification failed (attempt %d/%d), retrying in %v", i+1, maxRetries+1, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
