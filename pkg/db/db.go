package db

import (
	"github.com/waterwatch/lifedrop/pkg/sheetssql"
)

// DB provides database operations using SheetsSQL
type DB struct {
	ssql *sheetssql.DB
}

// NewDB creates a new database instance
func NewDB(ssql *sheetssql.DB) *DB {
	return &DB{
		ssql: ssql,
	}
}

// Schema returns the SheetsSQL schema for every table this package stores
func Schema() (*sheetssql.Schema, error) {
	return sheetssql.SchemaFromModels(Alert{}, AlertComment{}, WaterReport{})
}
