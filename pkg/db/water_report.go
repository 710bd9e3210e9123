package db

import (
	"context"
	"fmt"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/sheetssql"
)

// GetWaterReports retrieves every stored water report in sheet order
func (db *DB) GetWaterReports(ctx context.Context) ([]model.WaterReport, error) {
	rows, err := sheetssql.GetTableAs[WaterReport](db.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get water reports: %w", err)
	}

	reports := make([]model.WaterReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode water report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// InsertWaterReports appends water report rows
func (db *DB) InsertWaterReports(ctx context.Context, reports []model.WaterReport) error {
	rows := make([]WaterReport, len(reports))
	for i, r := range reports {
		rows[i] = WaterReportFromModel(r)
	}
	if err := sheetssql.InsertModels(db.ssql, rows); err != nil {
		return fmt.Errorf("failed to insert water reports: %w", err)
	}
	return nil
}
