package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const inviteQueueName = "invite.issued"

// StartInviteConsumer connects to RabbitMQ, declares the invite.issued
// queue (durable), and starts consuming messages. Each event is
// appended to logs/invitations.log in a single-line format, standing in
// for a real mail provider integration. The function runs a reconnect
// loop with exponential backoff and keeps running across broker
// restarts; processing errors reject the offending message without
// requeueing so the server continues operating.
func StartInviteConsumer(url string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			slog.Warn("invite-consumer: failed to dial broker", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn); err != nil {
			slog.Warn("invite-consumer: consume loop ended, reconnecting", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("invite-consumer: set QoS failed", "error", err)
	}

	if _, err := ch.QueueDeclare(inviteQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(inviteQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			slog.Error("invite-consumer: handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev InviteIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "invitations.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Invitation issued | family=%q (id=%d) | to=%s | role=%s | invited_by=%q | expires=%s | token=%s\n",
		time.Now().UTC().Format(time.RFC3339), ev.FamilyName, ev.FamilyID, ev.Email, ev.Role, ev.InvitedBy, ev.ExpiresAt, ev.Token)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
