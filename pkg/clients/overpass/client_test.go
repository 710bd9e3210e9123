package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

var sanJose = model.BoundingBox{South: 37.20, West: -122.00, North: 37.45, East: -121.70}

func newOverpassServer(t *testing.T, status int, body string, calls *int32, query *string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if query != nil {
			*query = r.URL.Query().Get("data")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, time.Hour, zap.NewNop())
	client.http.RetryMax = 1
	client.http.RetryWaitMin = time.Millisecond
	client.http.RetryWaitMax = time.Millisecond
	return client
}

func TestQuery(t *testing.T) {
	assert.Equal(t,
		`[out:json];node["amenity"="drinking_water"](37.2,-122,37.45,-121.7);out;`,
		Query(sanJose))
}

func TestDrinkingWater_ParsesNodes(t *testing.T) {
	var calls int32
	var query string
	client := newOverpassServer(t, http.StatusOK, `{
		"elements": [
			{"type": "node", "lat": 37.33, "lon": -121.88, "tags": {"amenity": "drinking_water", "name": "Plaza Fountain"}},
			{"type": "node", "lat": 37.34, "lon": -121.89, "tags": {"amenity": "drinking_water"}},
			{"type": "node", "lat": 37.35, "lon": -121.90}
		]
	}`, &calls, &query)

	sources, err := client.DrinkingWater(context.Background(), sanJose)
	require.NoError(t, err)

	assert.Equal(t, []model.WaterSource{
		{Name: "Plaza Fountain", Lat: 37.33, Lng: -121.88},
		{Name: "Drinking Water", Lat: 37.34, Lng: -121.89},
		{Name: "Drinking Water", Lat: 37.35, Lng: -121.90},
	}, sources)
	assert.Equal(t, Query(sanJose), query)
}

func TestDrinkingWater_Cache(t *testing.T) {
	var calls int32
	client := newOverpassServer(t, http.StatusOK, `{"elements": [{"type": "node", "lat": 1, "lon": 2}]}`, &calls, nil)

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	_, err := client.DrinkingWater(context.Background(), sanJose)
	require.NoError(t, err)
	_, err = client.DrinkingWater(context.Background(), sanJose)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "second lookup served from cache")

	other := sanJose
	other.North = 37.50
	_, err = client.DrinkingWater(context.Background(), other)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "cache is keyed on the box")

	now = now.Add(time.Hour)
	_, err = client.DrinkingWater(context.Background(), sanJose)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "entry expires after the ttl")
}

func TestDrinkingWater_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"server error is retried then fails", http.StatusGatewayTimeout, `busy`, 2},
		{"bad request is not retried", http.StatusBadRequest, `bad query`, 1},
		{"malformed json", http.StatusOK, `<html>`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newOverpassServer(t, tt.status, tt.body, &calls, nil)

			_, err := client.DrinkingWater(context.Background(), sanJose)
			assert.Error(t, err)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))

			_, err = client.DrinkingWater(context.Background(), sanJose)
			assert.Error(t, err, "failures are not cached")
		})
	}
}
