// Package queue defines the email notification envelope exchanged over
// the message broker and the producer/consumer that move it.
package queue

// EmailQueue is the durable queue shared by the monolith (producer) and
// the notifier service (consumer).
const EmailQueue = "notifications.email"

// Email templates.  The template selects which mail the notifier renders
// from the payload fields.
const (
	TemplateWelcome       = "user.welcome.email"
	TemplatePasswordReset = "user.password.reset"
)

// EmailNotification is the message body published to EmailQueue.  It
// carries enough for the notifier to render and send without querying
// the primary database.  NewPassword is only set for password resets.
type EmailNotification struct {
	Template    string `json:"template"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	NewPassword string `json:"new_password,omitempty"`
}
