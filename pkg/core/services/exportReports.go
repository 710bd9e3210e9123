package services

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// ReportColumns is the column order of report exports and imports
var ReportColumns = []string{
	"timestamp", "address", "zipcode", "description", "concerns",
	"type", "used", "symptoms", "alert", "photo_path",
}

const reportsSheet = "reports"

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func reportRecord(r model.WaterReport) []string {
	return []string{
		db.FormatTime(r.Timestamp),
		r.Address,
		r.Zipcode,
		r.Description,
		db.JoinConcerns(r.Concerns),
		string(r.Type),
		yesNo(r.Used),
		r.Symptoms,
		yesNo(r.Alert),
		r.PhotoPath,
	}
}

// ExportReportsCSV writes a header row followed by one row per report
func ExportReportsCSV(w io.Writer, reports []model.WaterReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write(reportRecord(r)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportReportsXLSX writes the same columns as ExportReportsCSV into a single-sheet workbook
func ExportReportsXLSX(w io.Writer, reports []model.WaterReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(reportsSheet, "A1", &ReportColumns); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	for i, r := range reports {
		record := reportRecord(r)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(reportsSheet, cell, &record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
