package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/iliyamo/equipment-rental/internal/config"
	"github.com/iliyamo/equipment-rental/internal/queue"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(
		`Hello {{.Name}},

Your verification code is: {{.OTP}}

Enter it on the verification page to activate your account.
`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`Hello {{.Name}},

Your password reset code is: {{.OTP}}

If you did not request a password reset you can ignore this message.
`))
)

// sendFunc matches smtp.SendMail so tests can capture messages.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer renders plain-text OTP mails and sends them with net/smtp.
type SMTPMailer struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     string
	fromName string
	send     sendFunc
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	m := &SMTPMailer{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		from:     cfg.From,
		fromName: cfg.FromName,
		send:     smtp.SendMail,
	}
	if cfg.User != "" {
		m.auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return m
}

func (m *SMTPMailer) SendVerificationOTP(ctx context.Context, to Recipient, otp string) error {
	return m.Deliver(ctx, queue.OTPMailEvent{Kind: queue.MailVerification, Email: to.Email, Name: to.Name, OTP: otp})
}

func (m *SMTPMailer) SendPasswordResetOTP(ctx context.Context, to Recipient, otp string) error {
	return m.Deliver(ctx, queue.OTPMailEvent{Kind: queue.MailPasswordReset, Email: to.Email, Name: to.Name, OTP: otp})
}

// Deliver sends ev.  It also satisfies queue.MailDeliverer for the mail
// consumer.
func (m *SMTPMailer) Deliver(ctx context.Context, ev queue.OTPMailEvent) error {
	if strings.TrimSpace(ev.Email) == "" {
		return errors.New("mail: empty recipient")
	}
	var (
		tmpl    *template.Template
		subject string
	)
	switch ev.Kind {
	case queue.MailVerification:
		tmpl, subject = verificationTmpl, "Verify your account"
	case queue.MailPasswordReset:
		tmpl, subject = resetTmpl, "Reset your password"
	default:
		return fmt.Errorf("mail: unknown kind %q", ev.Kind)
	}

	msg, err := m.compose(ev, subject, tmpl)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- m.send(m.addr, m.auth, m.from, []string{ev.Email}, msg) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send to %s: %w", ev.Email, err)
		}
		return nil
	}
}

func (m *SMTPMailer) compose(ev queue.OTPMailEvent, subject string, tmpl *template.Template) ([]byte, error) {
	name := ev.Name
	if name == "" {
		name = ev.Email
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, struct{ Name, OTP string }{name, ev.OTP}); err != nil {
		return nil, fmt.Errorf("mail: render %s: %w", ev.Kind, err)
	}

	var msg bytes.Buffer
	from := m.from
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.fromName), m.from)
	}
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", ev.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))
	return msg.Bytes(), nil
}
