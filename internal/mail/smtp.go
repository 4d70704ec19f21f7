package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"
)

// Dialer sends prepared gomail messages
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers messages synchronously over SMTP
type SMTPMailer struct {
	dialer Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer for the given SMTP server
func NewSMTPMailer(host string, port int, username, password, from string, logger *zap.Logger) *SMTPMailer {
	return NewSMTPMailerWithDialer(gomail.NewDialer(host, port, username, password), from, logger)
}

// NewSMTPMailerWithDialer creates a mailer on top of an existing dialer
func NewSMTPMailerWithDialer(dialer Dialer, from string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: dialer,
		from:   from,
		logger: logger,
	}
}

// Send sends msg as an HTML email
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/html", msg.Body)

	if err := m.dialer.DialAndSend(message); err != nil {
		m.logger.Error("failed to send email", zap.Error(err), zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
