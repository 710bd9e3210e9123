package httpapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

func (h *Handler) createAlert(c *gin.Context) {
	var input services.CreateAlertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	now := h.now()
	alert, err := services.CreateAlert(c.Request.Context(), h.db, h.generator, h.geocoder, h.logger, now, input)
	if err != nil {
		h.fail(c, "createAlert", err)
		return
	}

	c.JSON(http.StatusCreated, toAlertResponse(*alert, now))
}

func (h *Handler) listAlerts(c *gin.Context) {
	now := h.now()
	alerts, err := services.ListActiveAlerts(c.Request.Context(), h.db, h.logger, now, c.Query("type"))
	if err != nil {
		h.fail(c, "listAlerts", err)
		return
	}

	c.JSON(http.StatusOK, toAlertResponses(alerts, now))
}

func (h *Handler) voteAlert(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	now := h.now()
	direction := model.VoteDirection(strings.ToLower(req.Direction))
	alert, err := services.Vote(c.Request.Context(), h.db, h.logger, now, c.Param("id"), direction)
	if err != nil {
		h.fail(c, "voteAlert", err)
		return
	}

	c.JSON(http.StatusOK, toAlertResponse(*alert, now))
}

func (h *Handler) commentAlert(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	now := h.now()
	alert, err := services.AddComment(c.Request.Context(), h.db, h.logger, now, c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, "commentAlert", err)
		return
	}

	c.JSON(http.StatusOK, toAlertResponse(*alert, now))
}

func (h *Handler) exportAlertsText(c *gin.Context) {
	text, err := services.ExportAlertsText(c.Request.Context(), h.db, h.logger, h.now())
	if err != nil {
		h.fail(c, "exportAlertsText", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="alerts.txt"`)
	c.String(http.StatusOK, text)
}

func (h *Handler) exportAlertsPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := services.ExportAlertsPDF(c.Request.Context(), h.db, h.logger, h.now(), &buf); err != nil {
		h.fail(c, "exportAlertsPDF", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="alerts.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) geocode(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		badRequest(c, "address is required")
		return
	}
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
		h.fail(c, "geocode", err)
		return
	}

	c.JSON(http.StatusOK, GeocodeResponse{Address: address, Lat: coords.Lat, Lng: coords.Lng})
}
