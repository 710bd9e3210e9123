package geoclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

// Geocoder resolves a free-text address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*model.Coordinates, error)
}

// Client wraps the Google Maps geocoding API
type Client struct {
	maps *maps.Client
}

// NewClient creates a geocoding client. baseURL is only set in tests.
func NewClient(apiKey, baseURL string) (*Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}

	mapsClient, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &Client{maps: mapsClient}, nil
}

// Geocode returns the first result's location for address, passed verbatim.
// Zero results and non-OK provider statuses wrap model.ErrGeocodeNotFound.
// Context cancellation is returned unwrapped.
func (c *Client) Geocode(ctx context.Context, address string) (coords *model.Coordinates, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCollaborator("geocode", start, err) }()

	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrGeocodeNotFound, err)
	}

	if len(results) == 0 {
		return nil, model.ErrGeocodeNotFound
	}

	loc := results[0].Geometry.Location
	return &model.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}
