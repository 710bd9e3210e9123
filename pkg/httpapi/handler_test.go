package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

var testNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

type memoryDB struct {
	alerts  []model.Alert
	reports []model.WaterReport
	err     error
}

func (m *memoryDB) GetAlerts(ctx context.Context) ([]model.Alert, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Alert{}, m.alerts...), nil
}

func (m *memoryDB) InsertAlert(ctx context.Context, alert *model.Alert) error {
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *memoryDB) ReplaceAlerts(ctx context.Context, alerts []model.Alert) error {
	if m.err != nil {
		return m.err
	}
	m.alerts = append([]model.Alert{}, alerts...)
	return nil
}

func (m *memoryDB) GetWaterReports(ctx context.Context) ([]model.WaterReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.WaterReport{}, m.reports...), nil
}

func (m *memoryDB) InsertWaterReports(ctx context.Context, reports []model.WaterReport) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, reports...)
	return nil
}

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Complete(ctx context.Context, req llmclient.Completion) (string, error) {
	return s.text, s.err
}

type stubGeocoder struct {
	coords *model.Coordinates
	err    error
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*model.Coordinates, error) {
	return s.coords, s.err
}

func newTestRouter(t *testing.T, store *memoryDB, generator *stubGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Deps{
		DB:        store,
		Generator: generator,
		Geocoder:  &stubGeocoder{coords: &model.Coordinates{Lat: 37.3, Lng: -121.9}},
		Logger:    zap.NewNop(),
		PhotoDir:  t.TempDir(),
		Now:       func() time.Time { return testNow },
	})
	return NewRouter(h)
}

func makeRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &memoryDB{}, &stubGenerator{})
	w := makeRequest(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAlertLifecycle(t *testing.T) {
	store := &memoryDB{}
	router := newTestRouter(t, store, &stubGenerator{text: "Free water at Park St!"})

	w := makeRequest(router, http.MethodPost, "/api/v1/alerts", map[string]interface{}{
		"type":          "Water Station",
		"location_name": "Park St",
		"address":       "123 Park St",
		"hours":         "9AM-5PM",
		"ttl_minutes":   5,
		"geocode":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created AlertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Free water at Park St!", created.Message)
	assert.Equal(t, int64(300), created.SecondsRemaining)
	require.NotNil(t, created.Coordinates)

	w = makeRequest(router, http.MethodPost, "/api/v1/alerts/"+created.ID+"/votes", VoteRequest{Direction: "up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = makeRequest(router, http.MethodPost, "/api/v1/alerts/"+created.ID+"/comments", CommentRequest{Text: "thanks"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = makeRequest(router, http.MethodGet, "/api/v1/alerts?type=Water%20Station", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []AlertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].Upvotes)
	assert.Equal(t, []string{"thanks"}, listed[0].Comments)

	w = makeRequest(router, http.MethodGet, "/api/v1/alerts/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Free water at Park St!", w.Body.String())

	w = makeRequest(router, http.MethodGet, "/api/v1/alerts/export.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		store     *memoryDB
		generator *stubGenerator
		method    string
		url       string
		body      interface{}
		status    int
	}{
		{
			name:   "validation",
			store:  &memoryDB{},
			method: http.MethodPost, url: "/api/v1/alerts",
			body:   map[string]interface{}{"type": "Library", "ttl_minutes": 5},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown filter type",
			store:  &memoryDB{},
			method: http.MethodGet, url: "/api/v1/alerts?type=Library",
			status: http.StatusBadRequest,
		},
		{
			name:   "not found",
			store:  &memoryDB{},
			method: http.MethodPost, url: "/api/v1/alerts/nope/votes",
			body:   VoteRequest{Direction: "up"},
			status: http.StatusNotFound,
		},
		{
			name:      "generation",
			store:     &memoryDB{},
			generator: &stubGenerator{err: errors.New("rate limited")},
			method:    http.MethodPost, url: "/api/v1/alerts",
			body:   map[string]interface{}{"type": "Shower", "ttl_minutes": 5},
			status: http.StatusBadGateway,
		},
		{
			name:   "store",
			store:  &memoryDB{err: errors.New("quota")},
			method: http.MethodGet, url: "/api/v1/alerts",
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "bad json",
			store:  &memoryDB{},
			method: http.MethodPost, url: "/api/v1/reports",
			body:   "not an object",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := tt.generator
			if generator == nil {
				generator = &stubGenerator{text: "ok"}
			}
			router := newTestRouter(t, tt.store, generator)

			w := makeRequest(router, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestReportsEndpoints(t *testing.T) {
	store := &memoryDB{}
	router := newTestRouter(t, store, &stubGenerator{text: "Mostly discoloration."})

	w := makeRequest(router, http.MethodPost, "/api/v1/reports", map[string]interface{}{
		"address":     "1 Main St",
		"zipcode":     "12345-6789",
		"description": "Brown water",
		"concerns":    []string{"Discoloration"},
		"source_type": "Faucet",
		"used":        false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, store.reports, 1)
	assert.Equal(t, "N/A", store.reports[0].Symptoms)

	w = makeRequest(router, http.MethodPost, "/api/v1/reports", map[string]interface{}{
		"address": "1 Main St", "zipcode": "9511a", "description": "x",
		"concerns": []string{"Other"}, "source_type": "Faucet", "used": true,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, []string{"zipcode"}, errResp.Fields)

	w = makeRequest(router, http.MethodGet, "/api/v1/reports?zipcode=12345-6789&sort=oldest_first", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reports []model.WaterReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports, 1)

	w = makeRequest(router, http.MethodGet, "/api/v1/reports?sort=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = makeRequest(router, http.MethodGet, "/api/v1/reports/trends", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trends TrendsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trends))
	require.Len(t, trends.Trends, 1)
	assert.Equal(t, "2025-W23", trends.Trends[0].Week)
	assert.Equal(t, "12345-6789", trends.TopZips[0].Zipcode)

	w = makeRequest(router, http.MethodGet, "/api/v1/reports/export.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "timestamp,address,zipcode,"))

	w = makeRequest(router, http.MethodGet, "/api/v1/reports/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = makeRequest(router, http.MethodPost, "/api/v1/reports/analysis", AnalysisRequest{Zipcode: "12345-6789"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analysis AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, "Mostly discoloration.", analysis.Analysis)
}

func TestGeocodeEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Deps{DB: &memoryDB{}, Geocoder: &stubGeocoder{err: model.ErrGeocodeNotFound}, Logger: zap.NewNop()})
	router := NewRouter(h)

	w := makeRequest(router, http.MethodGet, "/api/v1/geocode?address=nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = makeRequest(router, http.MethodGet, "/api/v1/geocode", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = newTestRouter(t, &memoryDB{}, &stubGenerator{})
	w = makeRequest(router, http.MethodGet, "/api/v1/geocode?address=1%20Main%20St", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp GeocodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 37.3, resp.Lat)
}

func TestUploadPhoto(t *testing.T) {
	router := newTestRouter(t, &memoryDB{}, &stubGenerator{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "leak.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasSuffix(resp["photo_path"], "20250602_093000_leak.jpg"))
	_, err = os.Stat(resp["photo_path"])
	assert.NoError(t, err)
}

type stubFinder struct {
	sources []model.WaterSource
	err     error
}

func (s *stubFinder) DrinkingWater(ctx context.Context, box model.BoundingBox) ([]model.WaterSource, error) {
	return s.sources, s.err
}

func newWaterRouter(finder *stubFinder, generator *stubGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	deps := Deps{
		DB:       &memoryDB{},
		Geocoder: &stubGeocoder{coords: &model.Coordinates{Lat: 37.3382, Lng: -121.8863}},
		Logger:   zap.NewNop(),
		WaterDefaults: services.WaterSearch{
			Box:      model.BoundingBox{South: 37.20, West: -122.00, North: 37.45, East: -121.70},
			Center:   model.Coordinates{Lat: 37.3382, Lng: -121.8863},
			RadiusKm: 5,
		},
	}
	if finder != nil {
		deps.Water = finder
	}
	if generator != nil {
		deps.Generator = generator
	}
	return NewRouter(NewHandler(deps))
}

func TestWaterSourcesEndpoint(t *testing.T) {
	finder := &stubFinder{sources: []model.WaterSource{
		{Name: "Far Fountain", Lat: 37.3382 + 4.0/111.19, Lng: -121.8863},
		{Name: "Park Fountain", Lat: 37.3382 + 1.0/111.19, Lng: -121.8863},
		{Name: "Out of Range", Lat: 37.3382 + 8.0/111.19, Lng: -121.8863},
	}}
	router := newWaterRouter(finder, nil)

	tests := []struct {
		name     string
		url      string
		expected []string
		radius   float64
	}{
		{"configured centre", "/api/v1/water-sources", []string{"Park Fountain", "Far Fountain"}, 5},
		{"small radius", "/api/v1/water-sources?radius_km=2", []string{"Park Fountain"}, 2},
		{"explicit point", "/api/v1/water-sources?lat=37.3382&lng=-121.8863&radius_km=10", []string{"Park Fountain", "Far Fountain", "Out of Range"}, 10},
		{"geocoded address", "/api/v1/water-sources?address=1%20Main%20St", []string{"Park Fountain", "Far Fountain"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := makeRequest(router, http.MethodGet, tt.url, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp WaterSourcesResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.radius, resp.RadiusKm)

			var names []string
			for _, s := range resp.Sources {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestWaterSourcesEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name   string
		finder *stubFinder
		url    string
		status int
	}{
		{"not configured", nil, "/api/v1/water-sources", http.StatusServiceUnavailable},
		{"radius not a number", &stubFinder{}, "/api/v1/water-sources?radius_km=far", http.StatusBadRequest},
		{"radius out of range", &stubFinder{}, "/api/v1/water-sources?radius_km=25", http.StatusBadRequest},
		{"lat without lng", &stubFinder{}, "/api/v1/water-sources?lat=37.3", http.StatusBadRequest},
		{"lookup failed", &stubFinder{err: errors.New("gateway timeout")}, "/api/v1/water-sources", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newWaterRouter(tt.finder, nil)
			w := makeRequest(router, http.MethodGet, tt.url, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestTipEndpoints(t *testing.T) {
	router := newWaterRouter(&stubFinder{}, &stubGenerator{text: "Boil it for one minute."})

	w := makeRequest(router, http.MethodGet, "/api/v1/tips?clarity=cloudy&smell=yes", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tip model.WaterTip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tip))
	assert.Len(t, tip.Advice, 2)
	assert.NotEmpty(t, tip.Materials)

	w = makeRequest(router, http.MethodGet, "/api/v1/tips?clarity=muddy", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, []string{"clarity"}, errResp.Fields)

	w = makeRequest(router, http.MethodGet, "/api/v1/tips/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "questions")

	w = makeRequest(router, http.MethodPost, "/api/v1/tips/ask", TipRequest{Question: "  Is rain water safe?  "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answer TipResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "Is rain water safe?", answer.Question)
	assert.Equal(t, "Boil it for one minute.", answer.Answer)

	w = makeRequest(router, http.MethodPost, "/api/v1/tips/ask", TipRequest{Question: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = newWaterRouter(&stubFinder{}, &stubGenerator{err: errors.New("rate limited")})
	w = makeRequest(router, http.MethodPost, "/api/v1/tips/ask", TipRequest{Question: "Is rain water safe?"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
