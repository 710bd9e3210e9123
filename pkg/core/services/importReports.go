package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// importTimeLayouts are tried in order when parsing imported timestamps
var importTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ImportReportsCSV appends every row of a report CSV export to the store and returns the number imported.
// Extra columns are ignored. Each row is validated like a submitted report and
// no row is written unless all rows pass.
func ImportReportsCSV(ctx context.Context, store db.WaterReportStore, logger *zap.Logger, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, &model.ValidationError{Fields: ReportColumns, Reason: "csv file is empty"}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range ReportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return 0, &model.ValidationError{
			Fields: missing,
			Reason: fmt.Sprintf("csv must contain the columns: %s", strings.Join(ReportColumns, ", ")),
		}
	}

	var reports []model.WaterReport
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		report, err := parseReportRecord(record, index)
		if err != nil {
			lineField := fmt.Sprintf("line %d", line)
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				return 0, &model.ValidationError{
					Fields: append([]string{lineField}, verr.Fields...),
					Reason: fmt.Sprintf("%s: %s", lineField, verr.Reason),
				}
			}
			return 0, &model.ValidationError{
				Fields: []string{lineField},
				Reason: err.Error(),
			}
		}
		reports = append(reports, *report)
	}

	if len(reports) == 0 {
		logger.Info("CSV contained no reports")
		return 0, nil
	}

	if err := store.InsertWaterReports(ctx, reports); err != nil {
		return 0, storeError("insert water reports", err)
	}

	logger.Info("Imported water reports", zap.Int("count", len(reports)))
	return len(reports), nil
}

func parseReportRecord(record []string, index map[string]int) (*model.WaterReport, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	timestamp, err := parseImportTime(field("timestamp"))
	if err != nil {
		return nil, err
	}
	used, err := parseYesNo(field("used"))
	if err != nil {
		return nil, fmt.Errorf("used: %w", err)
	}
	alert, err := parseYesNo(field("alert"))
	if err != nil {
		return nil, fmt.Errorf("alert: %w", err)
	}

	// Imported rows obey the same rules as submitted ones; the export's timestamp is kept.
	return validateReportInput(SubmitReportInput{
		Address:     field("address"),
		Zipcode:     field("zipcode"),
		Description: field("description"),
		Concerns:    concernStrings(db.SplitConcerns(field("concerns"))),
		SourceType:  field("type"),
		Used:        &used,
		Symptoms:    field("symptoms"),
		Alert:       alert,
		PhotoPath:   field("photo_path"),
	}, timestamp)
}

func concernStrings(concerns []model.Concern) []string {
	out := make([]string, len(concerns))
	for i, c := range concerns {
		out[i] = string(c)
	}
	return out
}

func parseImportTime(s string) (time.Time, error) {
	for _, layout := range importTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "y", "1":
		return true, nil
	case "no", "false", "n", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("expected Yes or No, got %q", s)
}
