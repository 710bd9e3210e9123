package services

import (
	"context"
	"errors"

	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
)

var errBoom = errors.New("boom")

// mockStore is an in-memory db.Database. Reads and writes copy so callers cannot alias stored rows.
type mockStore struct {
	alerts  []model.Alert
	reports []model.WaterReport

	getAlertsErr     error
	insertAlertErr   error
	replaceAlertsErr error
	getReportsErr    error
	insertReportsErr error

	replaceCalls int
}

func copyAlerts(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, len(alerts))
	for i, a := range alerts {
		a.Comments = append([]string{}, a.Comments...)
		out[i] = a
	}
	return out
}

func (m *mockStore) GetAlerts(ctx context.Context) ([]model.Alert, error) {
	if m.getAlertsErr != nil {
		return nil, m.getAlertsErr
	}
	return copyAlerts(m.alerts), nil
}

func (m *mockStore) InsertAlert(ctx context.Context, alert *model.Alert) error {
	if m.insertAlertErr != nil {
		return m.insertAlertErr
	}
	m.alerts = append(m.alerts, copyAlerts([]model.Alert{*alert})...)
	return nil
}

func (m *mockStore) ReplaceAlerts(ctx context.Context, alerts []model.Alert) error {
	if m.replaceAlertsErr != nil {
		return m.replaceAlertsErr
	}
	m.replaceCalls++
	m.alerts = copyAlerts(alerts)
	return nil
}

func (m *mockStore) GetWaterReports(ctx context.Context) ([]model.WaterReport, error) {
	if m.getReportsErr != nil {
		return nil, m.getReportsErr
	}
	return append([]model.WaterReport{}, m.reports...), nil
}

func (m *mockStore) InsertWaterReports(ctx context.Context, reports []model.WaterReport) error {
	if m.insertReportsErr != nil {
		return m.insertReportsErr
	}
	m.reports = append(m.reports, reports...)
	return nil
}

// mockGenerator returns a fixed response and records every request
type mockGenerator struct {
	response string
	err      error
	requests []llmclient.Completion
}

func (m *mockGenerator) Complete(ctx context.Context, req llmclient.Completion) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockGeocoder struct {
	coords *model.Coordinates
	err    error
	calls  int
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*model.Coordinates, error) {
	m.calls++
	return m.coords, m.err
}

type mockNotifier struct {
	err      error
	notified []model.WaterReport
}

func (m *mockNotifier) NotifyWaterReport(ctx context.Context, report model.WaterReport) error {
	m.notified = append(m.notified, report)
	return m.err
}

type mockFinder struct {
	sources []model.WaterSource
	err     error
	boxes   []model.BoundingBox
}

func (m *mockFinder) DrinkingWater(ctx context.Context, box model.BoundingBox) ([]model.WaterSource, error) {
	m.boxes = append(m.boxes, box)
	return m.sources, m.err
}
