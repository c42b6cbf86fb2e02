package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/config"
	"github.com/medtalks/medtalks-api/internal/logger"
	"github.com/medtalks/medtalks-api/internal/mailer"
	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/services"
	"github.com/medtalks/medtalks-api/internal/store"
	"github.com/medtalks/medtalks-api/internal/utils"
)

// seed creates the bootstrap admin from ADMIN_EMAIL / ADMIN_PASSWORD. Running
// it again is a no-op.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables.")
	}
	cfg := config.Load()
	log := logger.New(cfg.AppName+"-seed", cfg.Env)
	cfg.LogWarnings(log)
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := store.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("failed to ensure indexes: %v", err)
	}

	notifier := services.NewNotificationService(mailer.Disabled{}, log, cfg.ResetPasswordURL(), cfg.CompanyName)
	auth := services.NewAuthService(
		store.NewMongoAccounts(db),
		store.NewMongoProfiles(db),
		utils.NewPasswordHasher(),
		utils.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		notifier,
		log,
		cfg.ResetTokenTTL,
	)

	res, err := auth.CreateAccount(ctx, services.AdminAccountRequest{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Role:     models.RoleAdmin,
		Password: cfg.AdminPassword,
	})
	if errors.Is(err, services.ErrConflict) {
		log.WithField("email", cfg.AdminEmail).Info("admin already exists")
		return
	}
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.WithField("account_id", res.Account.ID.Hex()).Info("admin created")
}
