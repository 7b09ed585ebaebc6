// Package service implements the hospital onboarding, matching and donation workflows.
package service

import (
	"context"
	"errors"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/notify"
	"bloodlink-backend/pkg/geo"

	"go.uber.org/zap"
)

// Clock returns the current time; replaced in tests.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// notifyQuietly sends a notification and only logs failures. Notifications
// never fail the operation that triggered them.
func notifyQuietly(ctx context.Context, n notify.Notifier, log *zap.Logger, to string, tmpl notify.Template, data map[string]string) {
	if n == nil || to == "" {
		return
	}
	if err := n.Notify(ctx, to, tmpl, data); err != nil {
		log.Warn("notification failed",
			zap.String("template", string(tmpl)),
			zap.Error(err))
	}
}

// validatePoint converts geo.ErrInvalidCoordinate into a field-level validation error.
func validatePoint(p geo.Point, field string) error {
	if err := p.Validate(); err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinate) {
			return apperror.Validation(field, err.Error())
		}
		return err
	}
	return nil
}
