// Package mail sends digest emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// DefaultFrom is the sender used when none is configured.
const DefaultFrom = "Task Stack <digest@taskstack.app>"

// ErrNotConfigured means no transport credentials exist. It is a skip, not a
// delivery failure.
var ErrNotConfigured = errors.New("email transport not configured")

// Transport delivers one HTML email.
type Transport interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendTransport sends through the Resend API.
type ResendTransport struct {
	client *resend.Client
	from   string
}

// NewResendTransport returns a transport that reports ErrNotConfigured when
// apiKey is empty.
func NewResendTransport(apiKey, from string) *ResendTransport {
	if from == "" {
		from = DefaultFrom
	}
	t := &ResendTransport{from: from}
	if apiKey != "" {
		t.client = resend.NewClient(apiKey)
	}
	return t
}

func (t *ResendTransport) Send(ctx context.Context, to, subject, html string) error {
	if t.client == nil {
		log.Printf("[info] email transport not configured, skipping email to %s", to)
		return ErrNotConfigured
	}
	sent, err := t.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    t.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	log.Printf("[info] digest sent to %s (%s)", to, sent.Id)
	return nil
}
