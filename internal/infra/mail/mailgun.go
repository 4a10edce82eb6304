package mail

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/arklim/accounts-service/internal/core/port"
)

const sendTimeout = 10 * time.Second

// MailgunSender delivers mail through the Mailgun HTTP API.
type MailgunSender struct {
	client *mg.MailgunImpl
	sender string
}

// NewMailgunSender constructs a Mailgun-backed sender.
func NewMailgunSender(domain, apiKey, sender string) *MailgunSender {
	return &MailgunSender{
		client: mg.NewMailgun(domain, apiKey),
		sender: sender,
	}
}

// Send delivers the message, bounded by a per-send timeout so a slow API call
// never stalls the request path.
func (m *MailgunSender) Send(ctx context.Context, mail port.Mail) error {
	msg := m.client.NewMessage(m.sender, mail.Subject, mail.Body, mail.To...)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, _, err := m.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
