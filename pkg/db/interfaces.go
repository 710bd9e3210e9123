package db

import (
	"context"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

// AlertStore defines the interface for alert table operations.
// ReplaceAlerts overwrites the whole table; there is no row-level update.
type AlertStore interface {
	GetAlerts(ctx context.Context) ([]model.Alert, error)
	InsertAlert(ctx context.Context, alert *model.Alert) error
	ReplaceAlerts(ctx context.Context, alerts []model.Alert) error
}

// WaterReportStore defines the interface for water report table operations
type WaterReportStore interface {
	GetWaterReports(ctx context.Context) ([]model.WaterReport, error)
	InsertWaterReports(ctx context.Context, reports []model.WaterReport) error
}

// Database defines the interface for all database operations.
// Both the SheetsSQL-backed db.DB and postgres.DB implement this interface.
type Database interface {
	AlertStore
	WaterReportStore
}
