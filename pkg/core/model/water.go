package model

// BoundingBox is a south/west/north/east rectangle in degrees
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// WaterSource is a public drinking-water point
type WaterSource struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// NearbyWaterSource is a WaterSource with its distance from the search centre
type NearbyWaterSource struct {
	WaterSource
	DistanceKm float64 `json:"distance_km"`
}

// WaterCondition is what someone can tell about water just by looking and smelling
type WaterCondition struct {
	Cloudy   bool `json:"cloudy"`
	BadSmell bool `json:"bad_smell"`
}

// WaterTip is rule-based treatment advice for a WaterCondition
type WaterTip struct {
	Advice    []string `json:"advice"`
	Materials []string `json:"materials"`
	Steps     []string `json:"steps"`
	Note      string   `json:"note,omitempty"`
}
