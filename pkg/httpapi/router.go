package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

// NewRouter builds the gin engine with logging, recovery, health and metrics routes
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))

	router.GET("/healthz", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

// RegisterRoutes registers the alert, report and water help API
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	alerts := api.Group("/alerts")
	{
		alerts.POST("", h.createAlert)
		alerts.GET("", h.listAlerts)
		alerts.GET("/export", h.exportAlertsText)
		alerts.GET("/export.pdf", h.exportAlertsPDF)
		alerts.POST("/:id/votes", h.voteAlert)
		alerts.POST("/:id/comments", h.commentAlert)
	}

	api.GET("/geocode", h.geocode)

	reports := api.Group("/reports")
	{
		reports.POST("", h.submitReport)
		reports.GET("", h.listReports)
		reports.POST("/photos", h.uploadPhoto)
		reports.GET("/export.csv", h.exportReportsCSV)
		reports.GET("/export.xlsx", h.exportReportsXLSX)
		reports.GET("/trends", h.reportTrends)
		reports.POST("/analysis", h.analyzeZipCode)
	}

	api.GET("/water-sources", h.waterSources)

	tips := api.Group("/tips")
	{
		tips.GET("", h.waterTip)
		tips.GET("/questions", h.tipQuestions)
		tips.POST("/ask", h.askWaterTip)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		metrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration)
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration))
	}
}
