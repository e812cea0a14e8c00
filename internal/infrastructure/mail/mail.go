package mail

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers one message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	return m
}

// LogSender writes messages to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.TextBody).Msg("mail not sent: no SMTP relay configured")
	return nil
}

// PasswordReset builds the reset email pointing at resetURL with the raw token
// appended as the "token" query parameter.
func PasswordReset(resetURL, email, username, token string) (Message, error) {
	u, err := url.Parse(resetURL)
	if err != nil {
		return Message{}, fmt.Errorf("parse reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	link := u.String()

	return Message{
		To:      email,
		Subject: "Reset your Recipe Hub password",
		TextBody: fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in 10 minutes.\n\n%s\n\n"+
			"If you did not ask for a reset you can ignore this email.\n", username, link),
		HTMLBody: fmt.Sprintf(`<p>Hi %s,</p><p>Use the link below to choose a new password. It expires in 10 minutes.</p>`+
			`<p><a href="%s">Reset password</a></p><p>If you did not ask for a reset you can ignore this email.</p>`,
			html.EscapeString(username), html.EscapeString(link)),
	}, nil
}
