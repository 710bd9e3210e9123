package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// GetWaterReports retrieves all water report records in insertion order
func (d *DB) GetWaterReports(ctx context.Context) ([]model.WaterReport, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT timestamp, address, zipcode, description, concerns, type, used, symptoms, alert, photo_path
		FROM water_report
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query water reports: %w", err)
	}
	defer rows.Close()

	reports := []model.WaterReport{}
	for rows.Next() {
		var r model.WaterReport
		var concerns, sourceType string
		if err := rows.Scan(&r.Timestamp, &r.Address, &r.Zipcode, &r.Description, &concerns, &sourceType,
			&r.Used, &r.Symptoms, &r.Alert, &r.PhotoPath); err != nil {
			return nil, fmt.Errorf("failed to scan water report: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		r.Concerns = db.SplitConcerns(concerns)
		r.Type = model.SourceType(sourceType)
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating water reports: %w", err)
	}

	return reports, nil
}

// InsertWaterReports inserts water report records in a single batch
func (d *DB) InsertWaterReports(ctx context.Context, reports []model.WaterReport) error {
	if len(reports) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range reports {
		batch.Queue(`
			INSERT INTO water_report (timestamp, address, zipcode, description, concerns, type, used, symptoms, alert, photo_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, r.Timestamp.UTC(), r.Address, r.Zipcode, r.Description, db.JoinConcerns(r.Concerns), string(r.Type),
			r.Used, r.Symptoms, r.Alert, r.PhotoPath)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert water reports: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
