package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/clients/geoclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// Deps are the collaborators the handlers call into. Geocoder, Notifier and Water may be nil.
// WaterDefaults is the search area, centre and radius used when a request gives none.
type Deps struct {
	DB            db.Database
	Generator     services.TextGenerator
	Geocoder      geoclient.Geocoder
	Notifier      services.ReportNotifier
	Water         services.WaterSourceFinder
	WaterDefaults services.WaterSearch
	Logger        *zap.Logger
	PhotoDir      string
	Now           func() time.Time
}

type Handler struct {
	db        db.Database
	generator services.TextGenerator
	geocoder  geoclient.Geocoder
	notifier  services.ReportNotifier
	logger    *zap.Logger
	photoDir  string
	now       func() time.Time

	water         services.WaterSourceFinder
	waterDefaults services.WaterSearch
}

func NewHandler(deps Deps) *Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		db:        deps.DB,
		generator: deps.Generator,
		geocoder:  deps.Geocoder,
		notifier:  deps.Notifier,
		logger:    logger,
		photoDir:  deps.PhotoDir,
		now:       now,

		water:         deps.Water,
		waterDefaults: deps.WaterDefaults,
	}
}

// statusFor maps the service error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		generationErr *model.GenerationError
		storeErr      *model.StoreError
		upstreamErr   *model.UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &generationErr), errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, method string, err error) {
	status := statusFor(err)
	log := h.logger.With(zap.String("method", method), zap.Int("status", status), zap.Error(err))

	body := ErrorResponse{Error: err.Error()}
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		body.Fields = validationErr.Fields
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	} else {
		log.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(status, body)
}

func isGeocodeNotFound(err error) bool {
	return errors.Is(err, model.ErrGeocodeNotFound)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
