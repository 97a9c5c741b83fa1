package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sender delivers a decoded notification; implemented by the mailer.
type Sender interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendPasswordReset(ctx context.Context, email, name, newPassword string) error
}

// StartEmailConsumer connects to the broker, declares the durable email
// queue and consumes it until the process exits.  It runs a reconnect
// loop with exponential backoff: a lost connection never takes the
// notifier down.  Malformed messages are rejected without requeue to
// avoid a tight redelivery loop; delivery failures are requeued so the
// broker retries them (at-least-once).
func StartEmailConsumer(url string, sender Sender) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("email-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, sender); err != nil {
			log.Printf("email-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, sender Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("email-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(EmailQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(EmailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		requeue, err := handleMessage(d.Body, sender)
		if err != nil {
			log.Printf("email-consumer: handle message failed: %v", err)
			_ = d.Nack(false, requeue)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage decodes and delivers one notification.  The returned
// bool says whether a failure is worth redelivering: transport errors
// are, poison messages are not.
func handleMessage(body []byte, sender Sender) (requeue bool, err error) {
	var n EmailNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return false, fmt.Errorf("unmarshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch n.Template {
	case TemplateWelcome:
		if err := sender.SendWelcome(ctx, n.Email, n.Name); err != nil {
			return true, fmt.Errorf("send welcome to %s: %w", n.Email, err)
		}
	case TemplatePasswordReset:
		if err := sender.SendPasswordReset(ctx, n.Email, n.Name, n.NewPassword); err != nil {
			return true, fmt.Errorf("send password reset to %s: %w", n.Email, err)
		}
	default:
		return false, fmt.Errorf("unknown template %q", n.Template)
	}

	log.Printf("email-consumer: delivered %s to %s", n.Template, n.Email)
	return false, nil
}
