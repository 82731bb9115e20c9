// Package email renders and delivers transactional mail. Rendering is shared
// between providers; delivery goes through Brevo's REST API or plain SMTP,
// selected by configuration. A disabled configuration yields the NoopSender so
// callers never branch on whether mail is wired up.
package email

import (
	"context"

	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Content  []byte
	FileName string
	MIMEType string
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlContent string, attachments ...Attachment) error
}

// NoopSender swallows every message. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string, string, string, ...Attachment) error {
	return nil
}

// NewSender builds the configured sender.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		log.Info("email disabled, using noop sender")
		return NoopSender{}
	}
	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		)
	default:
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
	}
}
