package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// MailDeliverer sends a queued OTP mail over a real transport.
type MailDeliverer interface {
	Deliver(ctx context.Context, ev OTPMailEvent) error
}

// StartMailConsumer blocks consuming the mail.otp queue until ctx is done.
func StartMailConsumer(ctx context.Context, url string, d MailDeliverer, log *zap.Logger) error {
	return Consume(ctx, url, MailQueue, MailHandler(d), log)
}

// MailHandler decodes an OTPMailEvent and hands it to d.
func MailHandler(d MailDeliverer) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var ev OTPMailEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Email == "" || ev.OTP == "" {
			return fmt.Errorf("incomplete mail event for %q", ev.Email)
		}
		return d.Deliver(ctx, ev)
	}
}
