package sheetssql

import (
	"fmt"
)

// SheetsClient defines the interface for sheets operations
type SheetsClient interface {
	GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error)
	AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error
	UpdateValues(spreadsheetID, sheetRange string, values [][]interface{}) error
	ListSheets(spreadsheetID string) ([]string, error)
	CreateSheet(spreadsheetID, sheetTitle string) (int64, error)
}

// Column defines a column with name and type
type Column struct {
	Name string
	Type string // e.g., "text", "datetime", "int", "float", "bool", "uuid", "json"
}

// TableSchema defines the structure of a table
type TableSchema struct {
	Name    string
	Columns []Column
}

// Schema defines the database schema
type Schema struct {
	Tables []TableSchema
}

// headerRows is the number of rows (headers, types) that precede data in every table
const headerRows = 2

// DB represents a connection to a Google Sheets "database"
type DB struct {
	client        SheetsClient
	spreadsheetID string
	schema        *Schema
}

// NewDB creates a new Sheets SQL database connection and ensures schema exists
func NewDB(client SheetsClient, spreadsheetID string, schema *Schema) (*DB, error) {
	db := &DB{
		client:        client,
		spreadsheetID: spreadsheetID,
		schema:        schema,
	}

	if err := db.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// SpreadsheetID returns the database spreadsheet ID
func (db *DB) SpreadsheetID() string {
	return db.spreadsheetID
}

// InsertRows appends rows to the specified table
func (db *DB) InsertRows(tableName string, rows [][]interface{}) error {
	return db.client.AppendRows(db.spreadsheetID, tableName, rows)
}

// ReplaceRows overwrites every data row of the table with rows in one update call.
// Rows beyond len(rows) that held data before are blanked in the same write, so a
// concurrent reader sees either the old or the new table, never an empty one.
// Header and type rows are left untouched.
func (db *DB) ReplaceRows(tableName string, rows [][]interface{}) error {
	dataRange := fmt.Sprintf("%s!A%d:ZZ", tableName, headerRows+1)
	existing, err := db.client.GetValues(db.spreadsheetID, dataRange)
	if err != nil {
		return fmt.Errorf("failed to read table %s: %w", tableName, err)
	}

	values := padRows(rows, existing)
	if len(values) == 0 {
		return nil
	}

	startRange := fmt.Sprintf("%s!A%d", tableName, headerRows+1)
	if err := db.client.UpdateValues(db.spreadsheetID, startRange, values); err != nil {
		return fmt.Errorf("failed to write table %s: %w", tableName, err)
	}

	return nil
}

// padRows squares rows off to the widest row seen and appends blank rows
// until the result covers every row in existing
func padRows(rows, existing [][]interface{}) [][]interface{} {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	for _, r := range existing {
		width = max(width, len(r))
	}

	values := make([][]interface{}, 0, max(len(rows), len(existing)))
	for _, r := range rows {
		values = append(values, blankFill(r, width))
	}
	for i := len(rows); i < len(existing); i++ {
		values = append(values, blankFill(nil, width))
	}
	return values
}

func blankFill(row []interface{}, width int) []interface{} {
	out := make([]interface{}, width)
	copy(out, row)
	for i := len(row); i < width; i++ {
		out[i] = ""
	}
	return out
}
