package mailer

import (
	"context"
	"crypto/tls"
	"errors"

	mail "github.com/go-mail/mail/v2"

	"github.com/noah-isme/nu-admissions-api/pkg/config"
)

// ErrNotConfigured is returned when SMTP host or sender address is missing.
var ErrNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// Message is a single outbound e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// dialer abstracts mail.Dialer so delivery can be replaced in tests.
type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer delivers messages through an SMTP relay using STARTTLS.
type SMTPMailer struct {
	from   string
	dialer dialer
}

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec // opt-in for development relays
	}
	return &SMTPMailer{from: cfg.From, dialer: d}, nil
}

// Send renders and delivers msg. Messages without recipients are ignored.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(build(m.from, msg))
}

func build(from string, msg Message) *mail.Message {
	out := mail.NewMessage()
	out.SetHeader("From", from)
	out.SetHeader("To", msg.To...)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)
	return out
}
