package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/config"
	"github.com/medtalks/medtalks-api/internal/handlers"
	"github.com/medtalks/medtalks-api/internal/jobs"
	"github.com/medtalks/medtalks-api/internal/logger"
	"github.com/medtalks/medtalks-api/internal/mailer"
	"github.com/medtalks/medtalks-api/internal/services"
	"github.com/medtalks/medtalks-api/internal/store"
	"github.com/medtalks/medtalks-api/internal/utils"
	"github.com/medtalks/medtalks-api/internal/validation"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables.")
	}

	cfg := config.Load()
	log := logger.New(cfg.AppName, cfg.Env)
	cfg.LogWarnings(log)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// --- Storage ---
	var (
		accounts store.AccountStore
		profiles store.ProfileStore
	)
	switch cfg.StoreDriver {
	case "memory":
		mem := store.NewMemory()
		accounts, profiles = mem, mem
		log.Warn("using in-memory store; data is lost on restart")
	default:
		client, db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("failed to connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := store.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("failed to ensure indexes: %v", err)
		}
		accounts, profiles = store.NewMongoAccounts(db), store.NewMongoProfiles(db)
		log.WithField("database", cfg.MongoDatabase).Info("connected to MongoDB")
	}

	// --- Mail ---
	var m mailer.Mailer = mailer.Disabled{}
	switch cfg.MailDriver {
	case "mailgun":
		m = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	case "queue":
		q, err := mailer.NewQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer q.Close()
		m = q
	default:
		log.Warn("MAIL_DRIVER=disabled; welcome emails will not be sent")
	}

	// --- Redis (rate limiting) ---
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; rate limiting fails open")
		}
		defer func() { _ = rdb.Close() }()
	}

	// --- Services ---
	notifier := services.NewNotificationService(m, log, cfg.ResetPasswordURL(), cfg.CompanyName)
	auth := services.NewAuthService(
		accounts,
		profiles,
		utils.NewPasswordHasher(),
		utils.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		notifier,
		log,
		cfg.ResetTokenTTL,
	)

	// --- Scheduled jobs ---
	c := cron.New()
	if _, err := jobs.Schedule(c, cfg.JanitorSchedule, jobs.NewResetTokenJanitor(auth, log)); err != nil {
		log.Fatalf("invalid JANITOR_SCHEDULE %q: %v", cfg.JanitorSchedule, err)
	}
	c.Start()
	defer c.Stop()

	// --- HTTP ---
	h := handlers.NewHandler(auth, log, handlers.CookieConfig{
		Name:   cfg.CookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	})
	r := handlers.NewRouter(h, handlers.RouterOptions{
		CORSOrigins:     cfg.CORSOrigins(),
		Redis:           rdb,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	log.Info("server exited properly")
}
