// Package mailer delivers transactional email for the notifier service.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v2"
)

// Config holds the delivery settings for the Resend client.
type Config struct {
	APIKey    string
	FromName  string
	FromEmail string
}

// LoadConfig reads mailer settings from the environment.
func LoadConfig() Config {
	return Config{
		APIKey:    os.Getenv("RESEND_API_KEY"),
		FromName:  os.Getenv("MAIL_FROM_NAME"),
		FromEmail: os.Getenv("MAIL_FROM_EMAIL"),
	}
}

// ResendMailer sends email through the Resend API.  It implements the
// queue consumer's Sender contract.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer validates the configuration and builds the client.
func NewResendMailer(cfg Config) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend API key is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("from email is required")
	}
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &ResendMailer{client: resend.NewClient(cfg.APIKey), from: from}, nil
}

// SendWelcome sends the welcome email to a newly registered user.
func (m *ResendMailer) SendWelcome(ctx context.Context, email, name string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Welcome!",
		Html:    welcomeTemplate(name),
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	log.Printf("mailer: welcome email sent to %s (id=%s)", email, sent.Id)
	return nil
}

// SendPasswordReset emails the freshly generated password after a
// recovery request.
func (m *ResendMailer) SendPasswordReset(ctx context.Context, email, name, newPassword string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Your password was reset",
		Html:    passwordResetTemplate(name, newPassword),
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	log.Printf("mailer: password reset email sent to %s (id=%s)", email, sent.Id)
	return nil
}
