package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends email notifications to the broker.  It implements the
// session manager's Notifier contract.  The connection is dialed lazily
// and re-dialed after failures; publishing errors are returned to the
// caller, which treats enqueueing as fire-and-forget and only logs them.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher prepares a publisher for the given broker URL.  No
// connection is made until the first publish.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// SendWelcomeEmail enqueues a welcome notification.
func (p *Publisher) SendWelcomeEmail(ctx context.Context, email, name string) error {
	return p.publish(ctx, EmailNotification{
		Template: TemplateWelcome,
		Email:    email,
		Name:     name,
	})
}

// SendPasswordResetEmail enqueues a password-reset notification carrying
// the freshly generated password.
func (p *Publisher) SendPasswordResetEmail(ctx context.Context, email, name, newPassword string) error {
	return p.publish(ctx, EmailNotification{
		Template:    TemplatePasswordReset,
		Email:       email,
		Name:        name,
		NewPassword: newPassword,
	})
}

// publish marshals the notification and sends it as a persistent message
// to the durable queue.  One failed attempt invalidates the cached
// channel so the next call re-dials.
func (p *Publisher) publish(ctx context.Context, n EmailNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",         // default exchange
		EmailQueue, // routing key = queue name
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", n.Template, err)
	}
	return nil
}

// channel returns the cached channel, dialing the broker and declaring
// the durable queue when needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(EmailQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.reset()
	log.Printf("queue: publisher closed")
}
