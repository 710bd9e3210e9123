package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

// partitionAlerts splits alerts into live and expired at now, preserving store order
func partitionAlerts(alerts []model.Alert, now time.Time) (live, expired []model.Alert) {
	live = make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.IsLive(now) {
			live = append(live, a)
		} else {
			expired = append(expired, a)
		}
	}
	return live, expired
}

// loadLiveAlerts reads the alert table and writes back the live remainder if anything expired
func loadLiveAlerts(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time) ([]model.Alert, int, error) {
	alerts, err := store.GetAlerts(ctx)
	if err != nil {
		return nil, 0, storeError("read alerts", err)
	}

	live, expired := partitionAlerts(alerts, now)
	if len(expired) == 0 {
		return live, 0, nil
	}

	for _, a := range expired {
		logger.Debug("Reaping expired alert",
			zap.String("alert_id", a.ID),
			zap.Time("expired_at", a.ExpirationTime))
	}

	if err := store.ReplaceAlerts(ctx, live); err != nil {
		return nil, 0, storeError("write alerts", err)
	}

	metrics.AddExpiredAlerts(len(expired))
	logger.Info("Removed expired alerts", zap.Int("count", len(expired)), zap.Int("remaining", len(live)))

	return live, len(expired), nil
}

// ListActiveAlerts returns the live alerts in store order, optionally restricted to one type.
// Listing is what reaps expired alerts: their removal is persisted before returning.
func ListActiveAlerts(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time, filterType string) ([]model.Alert, error) {
	var want model.ResourceType
	if filterType != "" {
		rt, err := model.ParseResourceType(filterType)
		if err != nil {
			return nil, &model.ValidationError{Fields: []string{"type"}, Reason: err.Error()}
		}
		want = rt
	}

	live, _, err := loadLiveAlerts(ctx, store, logger, now)
	if err != nil {
		return nil, err
	}

	if want == "" {
		return live, nil
	}

	filtered := make([]model.Alert, 0, len(live))
	for _, a := range live {
		if a.Type == want {
			filtered = append(filtered, a)
		}
	}

	logger.Debug("Filtered alerts by type",
		zap.String("type", string(want)),
		zap.Int("matched", len(filtered)),
		zap.Int("live", len(live)))

	return filtered, nil
}

// PurgeExpiredAlerts removes expired alerts without listing and returns how many were removed
func PurgeExpiredAlerts(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time) (int, error) {
	_, removed, err := loadLiveAlerts(ctx, store, logger, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired alerts: %w", err)
	}
	return removed, nil
}
