// Package mailer delivers one-time codes to users.  The transport is chosen
// by MAIL_DRIVER: smtp sends inline, queue hands the mail to RabbitMQ for the
// background consumer, and log only records that a code was issued.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/config"
	"github.com/iliyamo/equipment-rental/internal/queue"
)

// Recipient identifies who receives a code.
type Recipient struct {
	Email string
	Name  string
}

// Notifier is the outbound notification port used by the auth service.
type Notifier interface {
	SendVerificationOTP(ctx context.Context, to Recipient, otp string) error
	SendPasswordResetOTP(ctx context.Context, to Recipient, otp string) error
}

// New builds the Notifier selected by cfg.Driver.  The SMTP mailer is also
// returned so main can hand it to the mail consumer when the queue driver
// is active.
func New(cfg config.MailConfig, pub *queue.Publisher, log *zap.Logger) (Notifier, *SMTPMailer, error) {
	smtpMailer := NewSMTPMailer(cfg)
	switch strings.ToLower(cfg.Driver) {
	case "smtp":
		return smtpMailer, smtpMailer, nil
	case "queue":
		if pub == nil {
			return nil, nil, fmt.Errorf("mail driver %q needs a queue publisher", cfg.Driver)
		}
		return NewQueueNotifier(pub), smtpMailer, nil
	case "", "log":
		return NewLogNotifier(log), smtpMailer, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// QueueNotifier publishes OTP mails to the mail.otp queue.
type QueueNotifier struct {
	pub interface {
		PublishOTPMail(ctx context.Context, ev queue.OTPMailEvent) error
	}
}

func NewQueueNotifier(pub *queue.Publisher) *QueueNotifier { return &QueueNotifier{pub: pub} }

func (n *QueueNotifier) SendVerificationOTP(ctx context.Context, to Recipient, otp string) error {
	return n.pub.PublishOTPMail(ctx, queue.OTPMailEvent{Kind: queue.MailVerification, Email: to.Email, Name: to.Name, OTP: otp})
}

func (n *QueueNotifier) SendPasswordResetOTP(ctx context.Context, to Recipient, otp string) error {
	return n.pub.PublishOTPMail(ctx, queue.OTPMailEvent{Kind: queue.MailPasswordReset, Email: to.Email, Name: to.Name, OTP: otp})
}

// LogNotifier is used when no transport is configured.  The code itself is
// only written at debug level.
type LogNotifier struct{ log *zap.Logger }

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerificationOTP(_ context.Context, to Recipient, otp string) error {
	n.log.Info("mail: verification code issued", zap.String("email", to.Email))
	n.log.Debug("mail: verification code", zap.String("email", to.Email), zap.String("otp", otp))
	return nil
}

func (n *LogNotifier) SendPasswordResetOTP(_ context.Context, to Recipient, otp string) error {
	n.log.Info("mail: password reset code issued", zap.String("email", to.Email))
	n.log.Debug("mail: password reset code", zap.String("email", to.Email), zap.String("otp", otp))
	return nil
}
