package commands

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/internal/config"
	"github.com/waterwatch/lifedrop/pkg/clients/geoclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// AppContext holds the application dependencies shared across all commands.
// Generator, Geocoder and Notifier are nil when their credentials are not configured.
type AppContext struct {
	Cfg       *config.Config
	Secrets   *config.Secrets
	Database  db.Database
	Generator services.TextGenerator
	Geocoder  geoclient.Geocoder
	Notifier  services.ReportNotifier
	Water     services.WaterSourceFinder
	Logger    *zap.Logger
	Ctx       context.Context
	Now       func() time.Time
}

var (
	errNoGenerator = errors.New("text generation is not configured: set OPENAI_API_KEY")
	errNoGeocoder  = errors.New("geocoding is not configured: set MAPS_API_KEY")
)

func (app *AppContext) now() time.Time {
	if app.Now != nil {
		return app.Now()
	}
	return time.Now()
}

func (app *AppContext) generator() (services.TextGenerator, error) {
	if app.Generator == nil {
		return nil, errNoGenerator
	}
	return app.Generator, nil
}

// waterDefaults is the configured search area, centre and radius
func (app *AppContext) waterDefaults() services.WaterSearch {
	wm := app.Cfg.WaterMap
	return services.WaterSearch{
		Box:      model.BoundingBox{South: wm.South, West: wm.West, North: wm.North, East: wm.East},
		Center:   model.Coordinates{Lat: wm.CenterLat, Lng: wm.CenterLng},
		RadiusKm: wm.DefaultRadiusKm,
	}
}
