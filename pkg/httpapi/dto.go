package httpapi

import (
	"time"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type VoteRequest struct {
	Direction string `json:"direction" binding:"required"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

type AnalysisRequest struct {
	Zipcode string `json:"zipcode" binding:"required"`
}

// AlertResponse adds the seconds left before expiry to an alert
type AlertResponse struct {
	model.Alert
	SecondsRemaining int64 `json:"seconds_remaining"`
}

type TrendsResponse struct {
	Trends  []services.TrendPoint `json:"trends"`
	TopZips []services.ZipCount   `json:"top_zipcodes"`
}

type AnalysisResponse struct {
	Zipcode  string `json:"zipcode"`
	Analysis string `json:"analysis"`
}

type TipRequest struct {
	Question string `json:"question"`
}

type TipResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// WaterSourcesResponse echoes the centre and radius the search actually used
type WaterSourcesResponse struct {
	Center   model.Coordinates         `json:"center"`
	RadiusKm float64                   `json:"radius_km"`
	Sources  []model.NearbyWaterSource `json:"sources"`
}

type GeocodeResponse struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func toAlertResponse(a model.Alert, now time.Time) AlertResponse {
	return AlertResponse{Alert: a, SecondsRemaining: int64(a.TimeRemaining(now) / time.Second)}
}

func toAlertResponses(alerts []model.Alert, now time.Time) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a, now))
	}
	return out
}
