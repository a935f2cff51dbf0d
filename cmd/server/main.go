package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/account-service/internal/config"
	api "github.com/tazhibayda/account-service/internal/http"
	"github.com/tazhibayda/account-service/internal/log"
	"github.com/tazhibayda/account-service/internal/mail"
	"github.com/tazhibayda/account-service/internal/metrics"
	"github.com/tazhibayda/account-service/internal/queue"
	"github.com/tazhibayda/account-service/internal/repo"
	"github.com/tazhibayda/account-service/internal/service"
)

// @title account-service API
// @version 1.0
// @description User-account backend: registration with email/OTP verification, sign-in, password reset, user CRUD.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(os.Getenv("APP_ENV") == "production")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureUserIndexes(ctx); err != nil {
		logger.Fatal("user indexes", zap.Error(err))
	}

	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		logger.Warn("SMTP_HOST not set, mail goes to the log")
		sender = mail.LogSender{}
	}

	events := queue.NewNoop()
	if cfg.RabbitURL != "" {
		if events, err = queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange); err != nil {
			logger.Fatal("rabbit connect", zap.Error(err))
		}
	}
	defer events.Close()

	engine := service.NewEngine(store, sender, events, service.Options{
		JWTSecret:     cfg.JWTSecret,
		AccessTTL:     time.Duration(cfg.AccessTTLMin) * time.Minute,
		OtpTTL:        time.Duration(cfg.OtpTTLSec) * time.Second,
		ResetOtpTTL:   time.Duration(cfg.ResetOtpTTLSec) * time.Second,
		BcryptCost:    cfg.BcryptCost,
		EventExchange: cfg.RabbitExchange,
	})

	h := api.NewHandler(engine, store, cfg.JWTSecret)
	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("account-service listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("signal received, shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}
