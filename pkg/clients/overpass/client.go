package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

const (
	// DefaultURL is the public Overpass interpreter endpoint
	DefaultURL = "https://overpass-api.de/api/interpreter"

	defaultSourceName = "Drinking Water"
	requestTimeout    = 30 * time.Second
	maxBodyBytes      = 10 << 20
)

// Client finds OpenStreetMap drinking-water nodes through the Overpass API.
// Results are cached per bounding box for cacheTTL; the public endpoint is slow and rate limited.
type Client struct {
	http     *retryablehttp.Client
	url      string
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	cache map[model.BoundingBox]cacheEntry
}

type cacheEntry struct {
	sources []model.WaterSource
	fetched time.Time
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// NewClient creates a client for endpoint, or DefaultURL when endpoint is empty.
// A zero cacheTTL disables caching.
func NewClient(endpoint string, cacheTTL time.Duration, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	httpClient.HTTPClient.Timeout = requestTimeout
	httpClient.Logger = leveledLogger{logger.Sugar()}

	return &Client{
		http:     httpClient,
		url:      endpoint,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
		cache:    make(map[model.BoundingBox]cacheEntry),
	}
}

// Query renders the Overpass QL for drinking-water nodes inside box
func Query(box model.BoundingBox) string {
	return fmt.Sprintf("[out:json];node[\"amenity\"=\"drinking_water\"](%g,%g,%g,%g);out;",
		box.South, box.West, box.North, box.East)
}

// DrinkingWater returns every drinking-water node inside box.
// Nodes without a name tag are called "Drinking Water".
func (c *Client) DrinkingWater(ctx context.Context, box model.BoundingBox) ([]model.WaterSource, error) {
	if sources, ok := c.cached(box); ok {
		c.logger.Debug("Water source cache hit", zap.Int("count", len(sources)))
		return sources, nil
	}

	sources, err := c.fetch(ctx, box)
	if err != nil {
		return nil, err
	}

	if c.cacheTTL > 0 {
		c.mu.Lock()
		c.cache[box] = cacheEntry{sources: sources, fetched: c.now()}
		c.mu.Unlock()
	}
	return sources, nil
}

func (c *Client) cached(box model.BoundingBox) ([]model.WaterSource, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[box]
	if !ok || c.now().Sub(entry.fetched) >= c.cacheTTL {
		return nil, false
	}
	return entry.sources, true
}

func (c *Client) fetch(ctx context.Context, box model.BoundingBox) (sources []model.WaterSource, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCollaborator("overpass", start, err) }()

	endpoint := c.url + "?" + url.Values{"data": {Query(box)}}.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	var decoded response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}

	sources = make([]model.WaterSource, 0, len(decoded.Elements))
	for _, el := range decoded.Elements {
		if el.Type != "" && el.Type != "node" {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = defaultSourceName
		}
		sources = append(sources, model.WaterSource{Name: name, Lat: el.Lat, Lng: el.Lon})
	}

	c.logger.Debug("Fetched water sources", zap.Int("count", len(sources)))
	return sources, nil
}

// leveledLogger routes retryablehttp's logging through zap
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}
func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}
func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}
func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
