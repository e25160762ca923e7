package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"hamropasal.com/app/internal/audit"
	"hamropasal.com/app/internal/config"
	"hamropasal.com/app/internal/events"
	apphttp "hamropasal.com/app/internal/http"
	"hamropasal.com/app/internal/mailer"
	"hamropasal.com/app/internal/modules/email"
	"hamropasal.com/app/internal/modules/payments"
	"hamropasal.com/app/internal/storage"
)

func main() {
	// .env is optional; prod uses real env vars
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	esewa, err := payments.NewEsewa(payments.EsewaConfig{
		MerchantID: cfg.Esewa.MerchantID,
		SecretKey:  cfg.Esewa.SecretKey,
		BaseURL:    cfg.Esewa.BaseURL,
		SuccessURL: cfg.BaseURL + "/api/payments/esewa/callback",
		FailureURL: cfg.PaymentFailureURL,
	}, logger)
	if err != nil {
		log.Fatalf("esewa: %v", err)
	}

	khalti, err := payments.NewKhalti(payments.KhaltiAdapterConfig{
		SecretKey:  cfg.Khalti.SecretKey,
		PublicKey:  cfg.Khalti.PublicKey,
		BaseURL:    cfg.Khalti.BaseURL,
		ReturnURL:  cfg.BaseURL + "/api/payments/khalti/callback",
		WebsiteURL: cfg.BaseURL,
	}, logger)
	if err != nil {
		log.Fatalf("khalti: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.FromEnv(ctx)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	logger.Info("archive storage ready", "driver", store.Driver)
	esewa.SetAudit(audit.NewArchiver(store.Storage, logger))

	producer := events.FromEnv(cfg.KafkaBrokers, logger)
	defer producer.Close()

	// outbox drainer
	outboxWorker := email.NewWorker(db, mailer.NewSMTPMailer(cfg.SMTP), cfg.SMTP, logger)
	go outboxWorker.Run(ctx)

	r := apphttp.NewRouter(apphttp.Deps{
		Cfg:      cfg,
		DB:       db,
		Logger:   logger,
		Esewa:    esewa,
		Khalti:   khalti,
		Producer: producer,
	})

	logger.Info("listening", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
