package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/asc360/operator-portal/internal/config"
)

// SMTPNotifier delivers notifications as plain-text emails.
type SMTPNotifier struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewSMTPNotifier creates an email notifier from SMTP configuration.
func NewSMTPNotifier(cfg config.Config, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Send delivers the message to the destination address via SMTP.
func (n *SMTPNotifier) Send(_ context.Context, message Message) error {
	e := email.NewEmail()
	e.From = n.cfg.SenderEmail
	e.To = []string{message.Destination}
	e.Subject = message.Subject
	e.Text = []byte(message.Body)

	addr := fmt.Sprintf("%s:%s", n.cfg.SMTPHost, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.SMTPUsername, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		n.logger.Error("send email",
			slog.String("kind", message.Kind),
			slog.String("destination", message.Destination),
			slog.Any("error", err))
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email sent",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination))
	return nil
}
