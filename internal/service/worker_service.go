package service

import (
	"context"
	"errors"
	"time"

	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/repository"

	"go.uber.org/zap"
)

// ExpiryWorker closes active blood requests whose needed-by time has passed,
// so matching stops offering them to donors.
type ExpiryWorker struct {
	requests repository.BloodRequestStore
	interval time.Duration
	log      *zap.Logger
	now      Clock
}

func NewExpiryWorker(requests repository.BloodRequestStore, interval time.Duration, log *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpiryWorker{
		requests: requests,
		interval: interval,
		log:      log.Named("expiry"),
		now:      utcNow,
	}
}

// Start polls until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("expiry worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("expiry worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce expires overdue requests and returns how many it changed.
// A request closed concurrently by staff is skipped.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (int, error) {
	overdue, err := w.requests.ListExpired(ctx, w.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, req := range overdue {
		err := w.requests.UpdateStatus(ctx, req.ID, models.RequestActive, models.RequestExpired)
		if errors.Is(err, repository.ErrStaleStatus) {
			continue
		}
		if err != nil {
			w.log.Warn("could not expire request", zap.String("requestId", req.ID), zap.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		w.log.Info("expired blood requests", zap.Int("count", expired))
	}
	return expired, nil
}
