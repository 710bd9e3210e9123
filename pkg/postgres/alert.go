package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

// GetAlerts retrieves all alert records in insertion order
func (d *DB) GetAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, timestamp, type, message, location_name, address, hours,
		       lat, lng, expiration_time, upvotes, downvotes, comments
		FROM alert
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		var a model.Alert
		var alertType string
		var lat, lng *float64
		if err := rows.Scan(
			&a.ID, &a.Timestamp, &alertType, &a.Message, &a.LocationName, &a.Address, &a.Hours,
			&lat, &lng, &a.ExpirationTime, &a.Upvotes, &a.Downvotes, &a.Comments,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Type = model.ResourceType(alertType)
		a.Timestamp = a.Timestamp.UTC()
		a.ExpirationTime = a.ExpirationTime.UTC()
		if lat != nil && lng != nil {
			a.Coordinates = &model.Coordinates{Lat: *lat, Lng: *lng}
		}
		if a.Comments == nil {
			a.Comments = []string{}
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// InsertAlert inserts a new alert record
func (d *DB) InsertAlert(ctx context.Context, alert *model.Alert) error {
	if err := insertAlert(ctx, d.pool, alert); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ReplaceAlerts overwrites the alert table inside one transaction
func (d *DB) ReplaceAlerts(ctx context.Context, alerts []model.Alert) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM alert`); err != nil {
		return fmt.Errorf("failed to clear alerts: %w", err)
	}

	for i := range alerts {
		if err := insertAlert(ctx, tx, &alerts[i]); err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", alerts[i].ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAlert(ctx context.Context, q execer, alert *model.Alert) error {
	var lat, lng *float64
	if alert.Coordinates != nil {
		lat, lng = &alert.Coordinates.Lat, &alert.Coordinates.Lng
	}
	comments := alert.Comments
	if comments == nil {
		comments = []string{}
	}

	_, err := q.Exec(ctx, `
		INSERT INTO alert (id, timestamp, type, message, location_name, address, hours,
		                   lat, lng, expiration_time, upvotes, downvotes, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, alert.ID, alert.Timestamp.UTC(), string(alert.Type), alert.Message, alert.LocationName, alert.Address, alert.Hours,
		lat, lng, alert.ExpirationTime.UTC(), alert.Upvotes, alert.Downvotes, comments)
	return err
}
