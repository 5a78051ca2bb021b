package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rksaklani/pgimer-psy-sub000/internal/config"
	"go.uber.org/zap"
)

// Mailer delivers outbound notifications. Template rendering is deliberately
// minimal; the auth flows only need short plain-text messages.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg config.EmailConfig
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body,
	))

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}

// LogMailer is used when email delivery is disabled (local development). It
// logs that a message would have been sent without logging the body, which
// carries one-time codes.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.log.Info("email delivery disabled, dropping message",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
