package email

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"hamropasal.com/app/internal/config"
	"hamropasal.com/app/internal/mailer"
)

const (
	pollInterval = 15 * time.Second
	batchSize    = 20
	maxAttempts  = 5
)

// Worker drains the outbox. One instance per process is assumed; rows claimed
// with an optimistic status flip so a crashed send attempt is retried on the
// next pass.
type Worker struct {
	db     *gorm.DB
	mailer mailer.Service
	smtp   config.SMTPConfig
	logger *slog.Logger
}

func NewWorker(db *gorm.DB, m mailer.Service, smtp config.SMTPConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{db: db, mailer: m, smtp: smtp, logger: logger}
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce sends one batch of pending mail.
func (w *Worker) DrainOnce(ctx context.Context) {
	var rows []Outbox
	err := w.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", OutboxPending, maxAttempts).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&rows).Error
	if err != nil {
		w.logger.ErrorContext(ctx, "outbox query failed", "err", err)
		return
	}

	for _, row := range rows {
		w.sendOne(ctx, row)
	}
}

func (w *Worker) sendOne(ctx context.Context, row Outbox) {
	err := w.mailer.Send(ctx, mailer.Email{
		From:     w.smtp.From,
		FromName: "Hamro Pasal",
		To:       []string{row.ToEmail},
		Subject:  row.Subject,
		TextBody: row.TextBody,
	})

	now := time.Now()
	updates := map[string]any{
		"attempts":   row.Attempts + 1,
		"updated_at": now,
	}
	if err != nil {
		msg := err.Error()
		if len(msg) > 250 {
			msg = msg[:250]
		}
		updates["last_error"] = msg
		if row.Attempts+1 >= maxAttempts {
			updates["status"] = OutboxFailed
		}
		w.logger.WarnContext(ctx, "outbox send failed",
			"outbox_id", row.ID, "to", row.ToEmail, "attempt", row.Attempts+1, "err", err)
	} else {
		updates["status"] = OutboxSent
		updates["sent_at"] = now
		updates["last_error"] = nil
	}

	if dberr := w.db.WithContext(ctx).Model(&Outbox{}).
		Where("id = ?", row.ID).
		Updates(updates).Error; dberr != nil {
		w.logger.ErrorContext(ctx, "outbox update failed", "outbox_id", row.ID, "err", dberr)
	}
}
