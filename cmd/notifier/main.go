package main // Entry point for the email notification microservice

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/FelipeMiiller/userhub-back/internal/config"
	"github.com/FelipeMiiller/userhub-back/internal/mailer"
	"github.com/FelipeMiiller/userhub-back/internal/queue"
)

func main() {
	_ = godotenv.Load()

	m, err := mailer.NewResendMailer(mailer.LoadConfig())
	if err != nil {
		log.Fatalf("configure mailer: %v", err)
	}

	url := config.RabbitURL()
	log.Printf("notifier consuming %s", queue.EmailQueue)

	// Runs the reconnect loop until the process is stopped; delivery
	// retries are the broker's job (nack with requeue).
	if err := queue.StartEmailConsumer(url, m); err != nil {
		log.Fatal(err)
	}
}
