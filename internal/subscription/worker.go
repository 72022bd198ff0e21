package subscription

import (
	"context"
	"time"

	"craftlog/internal/logger"
)

// Worker drives subscription renewals in the background. Each tick is a
// full RunRenewals pass; a missed tick is caught up by the next one.
type Worker struct {
	service  Service
	interval time.Duration
}

func NewWorker(service Service, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{service: service, interval: interval}
}

func (w *Worker) Start(ctx context.Context) {
	logger.Info("renewal worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("renewal worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	stats, err := w.service.RunRenewals(ctx)
	if err != nil {
		logger.Error("renewal pass failed", "error", err)
		return
	}
	if stats.Renewed > 0 || stats.Expired > 0 || stats.Failed > 0 {
		logger.Info("renewal pass finished",
			"renewed", stats.Renewed,
			"expired", stats.Expired,
			"failed", stats.Failed,
		)
	}
}
