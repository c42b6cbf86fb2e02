package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/config"
	"github.com/medtalks/medtalks-api/internal/logger"
	"github.com/medtalks/medtalks-api/internal/mailer"
)

// The worker drains the email queue filled by the API when MAIL_DRIVER=queue
// and delivers each message through Mailgun.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables.")
	}
	cfg := config.Load()
	log := logger.New(cfg.AppName+"-email-worker", cfg.Env)
	cfg.LogWarnings(log)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	if err := mailer.Consume(ctx, cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, mg, log); err != nil {
		log.Fatalf("email worker: %v", err)
	}
	log.Info("email worker stopped")
}
