package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// InviteQueueName is the durable queue invitation events are published to.
const InviteQueueName = "invite.issued"

// AMQPSender publishes invitation events to RabbitMQ. A fresh
// connection is dialed per publish; invitation volume is low enough
// that connection reuse is not worth the reconnect bookkeeping.
// Errors are logged and returned so callers can ignore failures
// without interrupting the main request flow.
type AMQPSender struct {
	url string
}

// NewAMQPSender returns a sender that dials url on each publish.
func NewAMQPSender(url string) *AMQPSender {
	return &AMQPSender{url: url}
}

func (s *AMQPSender) SendInvite(ctx context.Context, inv Invite) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		slog.Error("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(InviteQueueName, true, false, false, false, nil); err != nil {
		slog.Error("rabbitmq: queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(inv)
	if err != nil {
		slog.Error("rabbitmq: marshal invite failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", InviteQueueName, false, false, pub); err != nil {
		slog.Error("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}
