package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

func boolPtr(b bool) *bool { return &b }

func validReportInput() SubmitReportInput {
	return SubmitReportInput{
		Address:     "1 Main St",
		Zipcode:     "95112",
		Description: "Brown water from the tap",
		Concerns:    []string{"Discoloration"},
		SourceType:  "Faucet",
		Used:        boolPtr(false),
	}
}

func report(zip string, ts time.Time, description string, concerns ...model.Concern) model.WaterReport {
	return model.WaterReport{
		Timestamp:   ts,
		Zipcode:     zip,
		Description: description,
		Concerns:    concerns,
		Type:        model.SourceFaucet,
		Symptoms:    model.SymptomsNotProvided,
	}
}

func TestSubmitReport_Zipcodes(t *testing.T) {
	tests := []struct {
		zip   string
		valid bool
	}{
		{"95112", true},
		{"95112-1234", true},
		{"12345-6789", true},
		{"9511", false},
		{"9511a", false},
		{"95112-12", false},
		{"951123", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.zip, func(t *testing.T) {
			store := &mockStore{}
			input := validReportInput()
			input.Zipcode = tt.zip

			_, err := SubmitReport(context.Background(), store, nil, zap.NewNop(), baseTime, input)

			assert.Equal(t, tt.valid, IsValidZipcode(tt.zip))
			if tt.valid {
				require.NoError(t, err)
				assert.Len(t, store.reports, 1)
				return
			}
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{"zipcode"}, verr.Fields)
			assert.Empty(t, store.reports)
		})
	}
}

func TestSubmitReport_BlankSymptomsStoredAsNA(t *testing.T) {
	store := &mockStore{}
	input := validReportInput()
	input.Zipcode = "12345-6789"
	input.Symptoms = ""

	stored, err := SubmitReport(context.Background(), store, nil, zap.NewNop(), baseTime, input)
	require.NoError(t, err)

	assert.Equal(t, "N/A", stored.Symptoms)
	require.Len(t, store.reports, 1)
	assert.Equal(t, "N/A", store.reports[0].Symptoms)
	assert.Equal(t, baseTime, store.reports[0].Timestamp)
}

func TestSubmitReport_MissingFields(t *testing.T) {
	_, err := SubmitReport(context.Background(), &mockStore{}, nil, zap.NewNop(), baseTime, SubmitReportInput{})

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t,
		[]string{"address", "zipcode", "description", "concerns", "source_type", "used"},
		verr.Fields)
}

func TestSubmitReport_EnumsAndLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitReportInput)
		field  string
	}{
		{"unknown concern", func(in *SubmitReportInput) { in.Concerns = []string{"Glowing"} }, "concerns"},
		{"empty concerns", func(in *SubmitReportInput) { in.Concerns = []string{} }, "concerns"},
		{"unknown source", func(in *SubmitReportInput) { in.SourceType = "Well" }, "source_type"},
		{"long description", func(in *SubmitReportInput) { in.Description = strings.Repeat("x", 301) }, "description"},
		{"blank address", func(in *SubmitReportInput) { in.Address = "   " }, "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validReportInput()
			tt.mutate(&input)

			_, err := SubmitReport(context.Background(), &mockStore{}, nil, zap.NewNop(), baseTime, input)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestSubmitReport_DedupesConcerns(t *testing.T) {
	input := validReportInput()
	input.Concerns = []string{"Foul smell", "Discoloration", "Foul smell"}
	input.Used = boolPtr(true)

	stored, err := SubmitReport(context.Background(), &mockStore{}, nil, zap.NewNop(), baseTime, input)
	require.NoError(t, err)

	assert.Equal(t, []model.Concern{model.ConcernFoulSmell, model.ConcernDiscoloration}, stored.Concerns)
	assert.True(t, stored.Used)
}

func TestSubmitReport_Notification(t *testing.T) {
	t.Run("sent when alert requested", func(t *testing.T) {
		notifier := &mockNotifier{}
		input := validReportInput()
		input.Alert = true

		_, err := SubmitReport(context.Background(), &mockStore{}, notifier, zap.NewNop(), baseTime, input)
		require.NoError(t, err)
		require.Len(t, notifier.notified, 1)
		assert.Equal(t, "95112", notifier.notified[0].Zipcode)
	})

	t.Run("not sent without alert flag", func(t *testing.T) {
		notifier := &mockNotifier{}
		_, err := SubmitReport(context.Background(), &mockStore{}, notifier, zap.NewNop(), baseTime, validReportInput())
		require.NoError(t, err)
		assert.Empty(t, notifier.notified)
	})

	t.Run("failure does not fail submission", func(t *testing.T) {
		store := &mockStore{}
		input := validReportInput()
		input.Alert = true

		_, err := SubmitReport(context.Background(), store, &mockNotifier{err: errBoom}, zap.NewNop(), baseTime, input)
		require.NoError(t, err)
		assert.Len(t, store.reports, 1)
	})

	t.Run("not sent when store fails", func(t *testing.T) {
		notifier := &mockNotifier{}
		input := validReportInput()
		input.Alert = true

		_, err := SubmitReport(context.Background(), &mockStore{insertReportsErr: errBoom}, notifier, zap.NewNop(), baseTime, input)
		var storeErr *model.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Empty(t, notifier.notified)
	})
}

func TestQueryReports(t *testing.T) {
	reports := []model.WaterReport{
		report("95112", baseTime.Add(time.Hour), "second"),
		report("95113", baseTime, "other zip"),
		report("95112", baseTime, "first"),
		report("95112", baseTime.Add(time.Hour), "tied with second"),
	}

	newest, err := QueryReports(reports, "95112", model.NewestFirst)
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, "second", newest[0].Description)
	assert.Equal(t, "tied with second", newest[1].Description)
	assert.Equal(t, "first", newest[2].Description)

	oldest, err := QueryReports(reports, "", model.OldestFirst)
	require.NoError(t, err)
	require.Len(t, oldest, 4)
	assert.Equal(t, "other zip", oldest[0].Description)
	assert.Equal(t, "first", oldest[1].Description)

	defaulted, err := QueryReports(reports, "", "")
	require.NoError(t, err)
	assert.Equal(t, "second", defaulted[0].Description)

	_, err = QueryReports(reports, "", "random")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAggregateTrends_SumsToZipTotal(t *testing.T) {
	monday := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	reports := []model.WaterReport{
		report("95112", monday, "a"),
		report("95112", monday.Add(48*time.Hour), "b"),
		report("95112", monday.Add(7*24*time.Hour), "c"),
		report("95113", monday, "d"),
		report("95112", monday.Add(30*24*time.Hour), "e"),
	}

	trends := AggregateTrends(reports)

	assert.Equal(t, 2, trends[model.TrendKey{Zipcode: "95112", Week: "2025-W07"}])
	assert.Equal(t, 1, trends[model.TrendKey{Zipcode: "95112", Week: "2025-W08"}])

	totals := map[string]int{}
	for key, count := range trends {
		totals[key.Zipcode] += count
	}
	assert.Equal(t, 4, totals["95112"])
	assert.Equal(t, 1, totals["95113"])
}

func TestWeekLabel_ISOYearBoundary(t *testing.T) {
	assert.Equal(t, "2025-W01", WeekLabel(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2020-W53", WeekLabel(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSortedTrendsAndTopZipCodes(t *testing.T) {
	trends := map[model.TrendKey]int{
		{Zipcode: "95113", Week: "2025-W02"}: 1,
		{Zipcode: "95112", Week: "2025-W03"}: 2,
		{Zipcode: "95112", Week: "2025-W01"}: 1,
		{Zipcode: "95110", Week: "2025-W01"}: 3,
		{Zipcode: "95111", Week: "2025-W01"}: 1,
	}

	points := SortedTrends(trends)
	require.Len(t, points, 5)
	assert.Equal(t, TrendPoint{Zipcode: "95110", Week: "2025-W01", Count: 3}, points[0])
	assert.Equal(t, TrendPoint{Zipcode: "95112", Week: "2025-W01", Count: 1}, points[2])

	top := TopZipCodes(trends, 3)
	assert.Equal(t, []ZipCount{
		{Zipcode: "95110", Count: 3},
		{Zipcode: "95112", Count: 3},
		{Zipcode: "95111", Count: 1},
	}, top)

	assert.Len(t, TopZipCodes(trends, 0), 4)
}

func TestAnalyzeZipCode(t *testing.T) {
	start := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	store := &mockStore{}
	for week := 0; week < 14; week++ {
		store.reports = append(store.reports,
			report("95112", start.Add(time.Duration(week)*7*24*time.Hour), "week report", model.ConcernFoulSmell))
	}
	store.reports = append(store.reports, report("95113", start, "elsewhere"))
	generator := &mockGenerator{response: "Recurring foul smell."}

	analysis, err := AnalyzeZipCode(context.Background(), store, generator, zap.NewNop(), "95112")
	require.NoError(t, err)
	assert.Equal(t, "Recurring foul smell.", analysis)

	require.Len(t, generator.requests, 1)
	req := generator.requests[0]
	assert.Contains(t, req.SystemPrompt, "ZIP code 95112")
	assert.InDelta(t, 0.5, req.Temperature, 1e-6)
	assert.Equal(t, 300, req.MaxTokens)
	assert.True(t, strings.HasPrefix(req.UserPrompt, "Here is the latest report data for ZIP 95112:\n"))
	assert.Equal(t, 12, strings.Count(req.UserPrompt, "- week "))
	assert.NotContains(t, req.UserPrompt, "2025-W02", "only the last 12 weeks are sent")
	assert.Contains(t, req.UserPrompt, "Foul smell")
	assert.NotContains(t, req.UserPrompt, "elsewhere")
}

func TestAnalyzeZipCode_Errors(t *testing.T) {
	store := &mockStore{reports: []model.WaterReport{report("95112", baseTime, "x")}}

	_, err := AnalyzeZipCode(context.Background(), store, &mockGenerator{}, zap.NewNop(), "abc")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = AnalyzeZipCode(context.Background(), store, &mockGenerator{}, zap.NewNop(), "99999")
	require.ErrorAs(t, err, &verr)

	_, err = AnalyzeZipCode(context.Background(), store, &mockGenerator{err: errBoom}, zap.NewNop(), "95112")
	var genErr *model.GenerationError
	require.ErrorAs(t, err, &genErr)

	_, err = AnalyzeZipCode(context.Background(), &mockStore{getReportsErr: errBoom}, &mockGenerator{}, zap.NewNop(), "95112")
	var storeErr *model.StoreError
	require.ErrorAs(t, err, &storeErr)
}

func TestExportAndImportReportsCSV(t *testing.T) {
	reports := []model.WaterReport{
		{
			Timestamp:   baseTime,
			Address:     "1 Main St, Apt 2",
			Zipcode:     "95112",
			Description: "Smells \"off\"",
			Concerns:    []model.Concern{model.ConcernFoulSmell, model.ConcernFoam},
			Type:        model.SourceFountain,
			Used:        true,
			Symptoms:    "Nausea",
			Alert:       false,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportReportsCSV(&buf, reports))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ReportColumns, records[0])
	assert.Equal(t, "Yes", records[1][6])
	assert.Equal(t, "No", records[1][8])
	assert.Equal(t, "Foul smell, Foam on surface", records[1][4])

	store := &mockStore{}
	n, err := ImportReportsCSV(context.Background(), store, zap.NewNop(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, reports, store.reports)
}

func TestImportReportsCSV_LenientRows(t *testing.T) {
	data := "timestamp,address,zipcode,description,concerns,type,used,symptoms,alert,photo_path,extra\n" +
		"2025-03-04 10:15:00,2 Oak Ave,95113,Murky,Other,Pipe Leak,no,,TRUE,photos/a.jpg,ignored\n"

	store := &mockStore{}
	n, err := ImportReportsCSV(context.Background(), store, zap.NewNop(), strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	r := store.reports[0]
	assert.Equal(t, time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC), r.Timestamp)
	assert.False(t, r.Used)
	assert.True(t, r.Alert)
	assert.Equal(t, "N/A", r.Symptoms)
	assert.Equal(t, []model.Concern{model.ConcernOther}, r.Concerns)
}

func TestImportReportsCSV_Errors(t *testing.T) {
	var verr *model.ValidationError

	_, err := ImportReportsCSV(context.Background(), &mockStore{}, zap.NewNop(), strings.NewReader("timestamp,address\n"))
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "zipcode")
	assert.NotContains(t, verr.Fields, "address")

	_, err = ImportReportsCSV(context.Background(), &mockStore{}, zap.NewNop(), strings.NewReader(""))
	require.ErrorAs(t, err, &verr)

	bad := strings.Join(ReportColumns, ",") + "\nyesterday,a,95112,d,Other,Faucet,No,,No,\n"
	store := &mockStore{}
	_, err = ImportReportsCSV(context.Background(), store, zap.NewNop(), strings.NewReader(bad))
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.reports)
}

func TestImportReportsCSV_RejectsInvalidReports(t *testing.T) {
	header := strings.Join(ReportColumns, ",") + "\n"
	good := "2025-03-04T10:15:00Z,2 Oak Ave,95113,Murky,Other,Faucet,No,,No,\n"

	tests := []struct {
		name   string
		row    string
		fields []string
	}{
		{
			name:   "bad zipcode",
			row:    "2025-03-04T10:15:00Z,1 Main St,9511a,d,Other,Faucet,No,,No,\n",
			fields: []string{"line 3", "zipcode"},
		},
		{
			name:   "unknown concern and source type",
			row:    "2025-03-04T10:15:00Z,1 Main St,95112,d,Bogus Tag,Lava Lake,No,,No,\n",
			fields: []string{"line 3", "concerns", "source_type"},
		},
		{
			name:   "missing description",
			row:    "2025-03-04T10:15:00Z,1 Main St,95112,,Other,Faucet,No,,No,\n",
			fields: []string{"line 3", "description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			n, err := ImportReportsCSV(context.Background(), store, zap.NewNop(), strings.NewReader(header+good+tt.row))

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ElementsMatch(t, tt.fields, verr.Fields)
			assert.Zero(t, n)
			assert.Empty(t, store.reports)
		})
	}
}

func TestExportReportsXLSX(t *testing.T) {
	reports := []model.WaterReport{report("95112", baseTime, "Murky", model.ConcernOther)}

	var buf bytes.Buffer
	require.NoError(t, ExportReportsXLSX(&buf, reports))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ReportColumns, rows[0])
	assert.Equal(t, "95112", rows[1][2])
	assert.Equal(t, "No", rows[1][6])
}

func TestStorePhoto(t *testing.T) {
	src := filepath.Join(t.TempDir(), "leak.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg"), 0o644))
	dir := filepath.Join(t.TempDir(), "photos")

	path, err := StorePhoto(dir, src, time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "20250405_060708_leak.jpg"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	_, err = StorePhoto(dir, filepath.Join(t.TempDir(), "missing.jpg"), baseTime)
	assert.Error(t, err)
}
