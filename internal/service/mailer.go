package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

var ErrMailerNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

// Mailer delivers a message and reports which recipients accepted it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) ([]string, error)
}

// NewMailer returns a Resend mailer, or a log-only mailer in development.
func NewMailer(apiKey, fromEmail string, isDev bool) Mailer {
	if isDev {
		return &LogMailer{}
	}
	return NewResendMailer(apiKey, fromEmail)
}

type ResendMailer struct {
	client    *resend.Client
	fromEmail string
}

func NewResendMailer(apiKey, fromEmail string) *ResendMailer {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}

	return &ResendMailer{
		client:    client,
		fromEmail: fromEmail,
	}
}

// Send hands the message to Resend. Resend accepts or rejects a message as a
// whole, so a response carrying a message id means every recipient was accepted.
func (m *ResendMailer) Send(ctx context.Context, to, subject, body string) ([]string, error) {
	if m.client == nil {
		return nil, ErrMailerNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    m.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("resend: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return nil, nil
	}

	slog.Info("email sent", "to", to, "subject", subject, "id", sent.Id)
	return []string{to}, nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) ([]string, error) {
	slog.Info("email sent (dev mode)", "to", to, "subject", subject, "body", body)
	return []string{to}, nil
}
