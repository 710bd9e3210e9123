package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

const (
	MinRadiusKm     = 0.5
	MaxRadiusKm     = 10.0
	DefaultRadiusKm = 5.0

	earthRadiusKm = 6371.0
)

// WaterSourceFinder lists public drinking-water points inside a bounding box
type WaterSourceFinder interface {
	DrinkingWater(ctx context.Context, box model.BoundingBox) ([]model.WaterSource, error)
}

// WaterSearch describes a nearby drinking-water lookup
type WaterSearch struct {
	Box      model.BoundingBox
	Center   model.Coordinates
	RadiusKm float64
}

// HaversineKm is the great-circle distance between a and b
func HaversineKm(a, b model.Coordinates) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius keeps the sources at most radiusKm from center, nearest first.
// Ties keep their input order.
func WithinRadius(sources []model.WaterSource, center model.Coordinates, radiusKm float64) []model.NearbyWaterSource {
	nearby := make([]model.NearbyWaterSource, 0, len(sources))
	for _, s := range sources {
		d := HaversineKm(center, model.Coordinates{Lat: s.Lat, Lng: s.Lng})
		if d <= radiusKm {
			nearby = append(nearby, model.NearbyWaterSource{WaterSource: s, DistanceKm: d})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].DistanceKm < nearby[j].DistanceKm })
	return nearby
}

// NearbyWaterSources fetches the drinking-water points in the search box and
// returns those within the radius of the centre
func NearbyWaterSources(
	ctx context.Context,
	finder WaterSourceFinder,
	logger *zap.Logger,
	search WaterSearch,
) ([]model.NearbyWaterSource, error) {
	if err := validateWaterSearch(search); err != nil {
		return nil, err
	}

	sources, err := finder.DrinkingWater(ctx, search.Box)
	if err != nil {
		return nil, &model.UpstreamError{Service: "overpass", Err: err}
	}

	nearby := WithinRadius(sources, search.Center, search.RadiusKm)
	logger.Debug("Found nearby water sources",
		zap.Int("in_box", len(sources)),
		zap.Int("in_radius", len(nearby)),
		zap.Float64("radius_km", search.RadiusKm))

	return nearby, nil
}

func validateWaterSearch(search WaterSearch) error {
	var fields, reasons []string

	if search.RadiusKm < MinRadiusKm || search.RadiusKm > MaxRadiusKm {
		fields = append(fields, "radius_km")
		reasons = append(reasons, fmt.Sprintf("radius_km must be between %g and %g, got %g", MinRadiusKm, MaxRadiusKm, search.RadiusKm))
	}
	if math.Abs(search.Center.Lat) > 90 {
		fields = append(fields, "lat")
		reasons = append(reasons, fmt.Sprintf("lat %g is out of range", search.Center.Lat))
	}
	if math.Abs(search.Center.Lng) > 180 {
		fields = append(fields, "lng")
		reasons = append(reasons, fmt.Sprintf("lng %g is out of range", search.Center.Lng))
	}

	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields, Reason: strings.Join(reasons, "; ")}
	}
	return nil
}
