package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

// waterSources lists drinking water around lat/lng, a geocoded address, or the configured centre
func (h *Handler) waterSources(c *gin.Context) {
	if h.water == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "water source lookup is not configured"})
		return
	}

	search := h.waterDefaults
	if raw := c.Query("radius_km"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "radius_km must be a number")
			return
		}
		search.RadiusKm = radius
	}

	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	address := strings.TrimSpace(c.Query("address"))
	switch {
	case latRaw != "" || lngRaw != "":
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil {
			badRequest(c, "lat and lng must both be numbers")
			return
		}
		search.Center = model.Coordinates{Lat: lat, Lng: lng}
	case address != "":
		if h.geocoder == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "geocoding is not configured"})
			return
		}
		coords, err := services.Geocode(c.Request.Context(), h.geocoder, address)
		if err != nil {
			if isGeocodeNotFound(err) {
				c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
				return
			}
			h.fail(c, "waterSources", err)
			return
		}
		search.Center = *coords
	}

	nearby, err := services.NearbyWaterSources(c.Request.Context(), h.water, h.logger, search)
	if err != nil {
		h.fail(c, "waterSources", err)
		return
	}

	c.JSON(http.StatusOK, WaterSourcesResponse{
		Center:   search.Center,
		RadiusKm: search.RadiusKm,
		Sources:  nearby,
	})
}

func (h *Handler) waterTip(c *gin.Context) {
	cond, err := services.ParseWaterCondition(c.Query("clarity"), c.Query("smell"))
	if err != nil {
		h.fail(c, "waterTip", err)
		return
	}

	c.JSON(http.StatusOK, services.TipForCondition(cond))
}

func (h *Handler) askWaterTip(c *gin.Context) {
	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if h.generator == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "text generation is not configured"})
		return
	}

	answer, err := services.AskWaterTip(c.Request.Context(), h.generator, h.logger, req.Question)
	if err != nil {
		h.fail(c, "askWaterTip", err)
		return
	}

	c.JSON(http.StatusOK, TipResponse{Question: strings.TrimSpace(req.Question), Answer: answer})
}

func (h *Handler) tipQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": services.ExampleTipQuestions})
}
