package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/clients/geoclient"
	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

const (
	alertSystemPrompt = "You write short, friendly community alerts."
	alertTemperature  = 0.7
	alertMaxTokens    = 100
)

// CreateAlertInput holds the user-supplied fields of a new alert
type CreateAlertInput struct {
	Type         string `json:"type"`
	LocationName string `json:"location_name"`
	Address      string `json:"address"`
	Hours        string `json:"hours"`
	TTLMinutes   int    `json:"ttl_minutes"`
	Geocode      bool   `json:"geocode"`
}

// AlertPrompt renders the user prompt sent to the text generator
func AlertPrompt(resourceType model.ResourceType, locationName, address, hours string) string {
	return fmt.Sprintf(
		"You are helping homeless users find resources. Write a very short, friendly SMS-style alert about a new %s available at %s, %s. It is available %s. Keep it positive and encouraging.",
		resourceType, locationName, address, hours,
	)
}

// CreateAlert generates the alert text, optionally geocodes the address and appends one alert row.
// Nothing is stored when validation or generation fails.
// geocoder may be nil, in which case coordinates are never attached.
func CreateAlert(
	ctx context.Context,
	store db.AlertStore,
	generator TextGenerator,
	geocoder geoclient.Geocoder,
	logger *zap.Logger,
	now time.Time,
	input CreateAlertInput,
) (alert *model.Alert, err error) {
	defer func() { metrics.IncAlertEvent("create", err) }()

	resourceType, err := validateAlertInput(input)
	if err != nil {
		return nil, err
	}

	logger.Debug("Creating alert",
		zap.String("type", string(resourceType)),
		zap.String("location_name", input.LocationName),
		zap.Int("ttl_minutes", input.TTLMinutes))

	var coords *model.Coordinates
	if input.Geocode && geocoder != nil {
		coords, err = Geocode(ctx, geocoder, input.Address)
		switch {
		case errors.Is(err, model.ErrGeocodeNotFound):
			logger.Warn("Address could not be geocoded, continuing without coordinates",
				zap.String("address", input.Address), zap.Error(err))
		case err != nil:
			return nil, fmt.Errorf("failed to geocode address: %w", err)
		}
	}

	message, err := generator.Complete(ctx, llmclient.Completion{
		SystemPrompt: alertSystemPrompt,
		UserPrompt:   AlertPrompt(resourceType, input.LocationName, input.Address, input.Hours),
		Temperature:  alertTemperature,
		MaxTokens:    alertMaxTokens,
	})
	if err != nil {
		return nil, &model.GenerationError{Err: err}
	}

	timestamp := now.UTC().Truncate(time.Second)
	alert = &model.Alert{
		ID:             uuid.New().String(),
		Timestamp:      timestamp,
		Type:           resourceType,
		Message:        message,
		LocationName:   input.LocationName,
		Address:        input.Address,
		Hours:          input.Hours,
		Coordinates:    coords,
		ExpirationTime: timestamp.Add(time.Duration(input.TTLMinutes) * time.Minute),
		Comments:       []string{},
	}

	if err := store.InsertAlert(ctx, alert); err != nil {
		return nil, storeError("insert alert", err)
	}

	logger.Info("Alert created",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.Time("expires", alert.ExpirationTime),
		zap.Bool("has_coordinates", alert.Coordinates != nil))

	return alert, nil
}

func validateAlertInput(input CreateAlertInput) (model.ResourceType, error) {
	var fields, reasons []string

	resourceType, err := model.ParseResourceType(input.Type)
	if err != nil {
		fields = append(fields, "type")
		reasons = append(reasons, err.Error())
	}

	if input.TTLMinutes <= 0 {
		fields = append(fields, "ttl_minutes")
		reasons = append(reasons, fmt.Sprintf("ttl_minutes must be positive, got %d", input.TTLMinutes))
	}

	if len(fields) > 0 {
		return "", &model.ValidationError{Fields: fields, Reason: strings.Join(reasons, "; ")}
	}
	return resourceType, nil
}

// Geocode resolves address, returning model.ErrGeocodeNotFound when the provider has no usable result
func Geocode(ctx context.Context, geocoder geoclient.Geocoder, address string) (*model.Coordinates, error) {
	coords, err := geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if coords == nil {
		return nil, model.ErrGeocodeNotFound
	}
	return coords, nil
}
