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

// updateAlert applies fn to the live alert with the given id and writes the whole table back.
// There is no locking: concurrent updates race and the last write wins.
func updateAlert(
	ctx context.Context,
	store db.AlertStore,
	logger *zap.Logger,
	now time.Time,
	alertID string,
	fn func(*model.Alert),
) (*model.Alert, error) {
	alerts, err := store.GetAlerts(ctx)
	if err != nil {
		return nil, storeError("read alerts", err)
	}

	live, expired := partitionAlerts(alerts, now)

	idx := -1
	for i := range live {
		if live[i].ID == alertID {
			idx = i
			break
		}
	}

	if idx < 0 {
		// Still persist the reap so a stale id is not found twice for different reasons
		if len(expired) > 0 {
			if err := store.ReplaceAlerts(ctx, live); err != nil {
				return nil, storeError("write alerts", err)
			}
			metrics.AddExpiredAlerts(len(expired))
		}
		return nil, &model.NotFoundError{ID: alertID}
	}

	fn(&live[idx])

	if err := store.ReplaceAlerts(ctx, live); err != nil {
		return nil, storeError("write alerts", err)
	}
	if len(expired) > 0 {
		metrics.AddExpiredAlerts(len(expired))
		logger.Debug("Removed expired alerts during update", zap.Int("count", len(expired)))
	}

	updated := live[idx]
	return &updated, nil
}

// Vote increments the up or down counter of a live alert by exactly one.
// Votes are not deduplicated; callers that want one vote per session must enforce it.
func Vote(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time, alertID string, direction model.VoteDirection) (alert *model.Alert, err error) {
	defer func() { metrics.IncAlertEvent("vote", err) }()

	if direction != model.VoteUp && direction != model.VoteDown {
		return nil, &model.ValidationError{
			Fields: []string{"direction"},
			Reason: fmt.Sprintf("direction must be %q or %q, got %q", model.VoteUp, model.VoteDown, direction),
		}
	}

	alert, err = updateAlert(ctx, store, logger, now, alertID, func(a *model.Alert) {
		if direction == model.VoteUp {
			a.Upvotes++
		} else {
			a.Downvotes++
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Vote recorded",
		zap.String("alert_id", alertID),
		zap.String("direction", string(direction)),
		zap.Int("upvotes", alert.Upvotes),
		zap.Int("downvotes", alert.Downvotes))

	return alert, nil
}

// AddComment appends text to a live alert's comments. Empty text is accepted.
func AddComment(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time, alertID, text string) (alert *model.Alert, err error) {
	defer func() { metrics.IncAlertEvent("comment", err) }()

	alert, err = updateAlert(ctx, store, logger, now, alertID, func(a *model.Alert) {
		comments := make([]string, len(a.Comments), len(a.Comments)+1)
		copy(comments, a.Comments)
		a.Comments = append(comments, text)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Comment added", zap.String("alert_id", alertID), zap.Int("comments", len(alert.Comments)))

	return alert, nil
}
