// Package audit archives raw gateway payloads that could not be interpreted,
// so disputed transactions can be reconciled later against what the gateway
// actually sent.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"hamropasal.com/app/internal/storage"
)

type Archiver struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewArchiver(store storage.Storage, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger}
}

// Record writes the payload as a JSON blob. Archival is best-effort: a storage
// failure is logged and swallowed, it must never fail the payment path.
func (a *Archiver) Record(ctx context.Context, provider, ref string, payload []byte) {
	if a.store == nil {
		return
	}

	filename := fmt.Sprintf("%s-%s-%d.json", provider, ref, time.Now().Unix())
	res, err := a.store.Put(ctx, bytes.NewReader(payload), storage.PutInput{
		Filename:    filename,
		ContentType: "application/json",
		Size:        int64(len(payload)),
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "audit archive failed",
			"provider", provider, "ref", ref, "err", err)
		return
	}
	a.logger.InfoContext(ctx, "gateway payload archived",
		"provider", provider, "ref", ref, "key", res.Key)
}
