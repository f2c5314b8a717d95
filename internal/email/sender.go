// Package email delivers transactional mail over SMTP.
package email

import "context"

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email delivery is disabled by configuration.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string, string) error { return nil }
