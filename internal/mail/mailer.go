// Package mail sends transactional email over SMTP.
//
// The service layer talks to the Mailer interface so tests (and deployments
// without SMTP credentials) can swap in the log-only implementation.
package mail

import (
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Mailer delivers a single message to one recipient.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Config holds SMTP connection settings.
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Configured reports whether enough fields are set to attempt delivery.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPMailer sends mail through an SMTP relay using gomail.
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send dials the relay and delivers one message. Dialing per message keeps
// the mailer stateless; at this traffic level connection reuse isn't worth
// the bookkeeping.
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: sending to %s: %w", to, err)
	}

	m.logger.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

// LogMailer is a no-delivery Mailer used when SMTP is not configured.
// It logs the message instead of sending it, so local development still
// shows the reset link.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(to, subject, htmlBody string) error {
	m.logger.Info("email delivery skipped (SMTP not configured)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", htmlBody),
	)
	return nil
}
