package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends JSON messages to durable queues on the default exchange.
// A connection is dialed per publish; traffic is limited to OTP mails and
// order events.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log}
}

// Publish marshals v and delivers it persistently to queue.  Errors are
// logged and returned so callers can decide to ignore them.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		p.log.Error("rabbitmq: marshal event failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	return nil
}

// PublishOTPMail enqueues an OTP mail for the mail consumer.
func (p *Publisher) PublishOTPMail(ctx context.Context, ev OTPMailEvent) error {
	if ev.RequestedAt == "" {
		ev.RequestedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return p.Publish(ctx, MailQueue, ev)
}

// PublishOrderPlaced announces a committed order.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, ev OrderPlacedEvent) error {
	if ev.PlacedAt == "" {
		ev.PlacedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return p.Publish(ctx, OrderQueue, ev)
}
