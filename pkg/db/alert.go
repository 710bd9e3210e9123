package db

import (
	"context"
	"fmt"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/sheetssql"
)

// GetAlerts retrieves every stored alert in sheet order with its comments attached
func (db *DB) GetAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := sheetssql.GetTableAs[Alert](db.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	commentRows, err := sheetssql.GetTableAs[AlertComment](db.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert comments: %w", err)
	}
	comments := GroupComments(commentRows)

	alerts := make([]model.Alert, 0, len(rows))
	for _, row := range rows {
		alert, err := row.ToModel(comments[row.ID])
		if err != nil {
			return nil, fmt.Errorf("failed to decode alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// InsertAlert appends a new alert row and any comments it already carries
func (db *DB) InsertAlert(ctx context.Context, alert *model.Alert) error {
	row, comments := AlertFromModel(*alert)
	if err := sheetssql.InsertModel(db.ssql, row); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	if err := sheetssql.InsertModels(db.ssql, comments); err != nil {
		return fmt.Errorf("failed to insert alert comments: %w", err)
	}
	return nil
}

// ReplaceAlerts overwrites the alert and comment tables with alerts
func (db *DB) ReplaceAlerts(ctx context.Context, alerts []model.Alert) error {
	rows := make([]Alert, 0, len(alerts))
	var comments []AlertComment
	for _, a := range alerts {
		row, c := AlertFromModel(a)
		rows = append(rows, row)
		comments = append(comments, c...)
	}

	if err := sheetssql.ReplaceModels(db.ssql, comments); err != nil {
		return fmt.Errorf("failed to replace alert comments: %w", err)
	}
	if err := sheetssql.ReplaceModels(db.ssql, rows); err != nil {
		return fmt.Errorf("failed to replace alerts: %w", err)
	}
	return nil
}
