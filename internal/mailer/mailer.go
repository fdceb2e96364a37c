// Package mailer delivers transactional email: verification links, login
// codes and booking/order confirmations.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/studio-booking/internal/config"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a single message.  Implementations do not retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the SMTP mailer when SMTP_HOST is configured and the log
// mailer otherwise.
func New(cfg config.Config, log *zerolog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return NewLogMailer(log)
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
}

// SMTPMailer sends through an SMTP relay using gomail.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPMailer builds a mailer for host:port.  Port 465 uses implicit TLS;
// other ports upgrade with STARTTLS when the server offers it.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	d := gomail.NewDialer(host, port, user, pass)
	d.SSL = port == 465
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	return &SMTPMailer{from: from, dialer: d}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mailer: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogMailer writes messages to the application log instead of sending
// them.  It is used in development and whenever SMTP is not configured.
type LogMailer struct {
	log *zerolog.Logger
}

func NewLogMailer(log *zerolog.Logger) *LogMailer {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &LogMailer{log: log}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mailer: empty recipient")
	}
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("email (not sent, SMTP disabled)")
	return nil
}
