package httpapi

import (
	"bytes"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

const topZipCodes = 5

func (h *Handler) submitReport(c *gin.Context) {
	var input services.SubmitReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	report, err := services.SubmitReport(c.Request.Context(), h.db, h.notifier, h.logger, h.now(), input)
	if err != nil {
		h.fail(c, "submitReport", err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

func (h *Handler) listReports(c *gin.Context) {
	reports, err := services.LoadReports(c.Request.Context(), h.db)
	if err != nil {
		h.fail(c, "listReports", err)
		return
	}

	result, err := services.QueryReports(reports, c.Query("zipcode"), model.ReportSortOrder(c.Query("sort")))
	if err != nil {
		h.fail(c, "listReports", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "photo file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, "uploadPhoto", err)
		return
	}
	defer src.Close()

	path, err := services.SavePhoto(h.photoDir, filepath.Base(file.Filename), src, h.now())
	if err != nil {
		h.fail(c, "uploadPhoto", err)
		return
	}

	h.logger.Info("Photo stored", zap.String("photo_path", path))
	c.JSON(http.StatusCreated, gin.H{"photo_path": path})
}

func (h *Handler) exportReportsCSV(c *gin.Context) {
	reports, err := h.sortedReports(c)
	if err != nil {
		h.fail(c, "exportReportsCSV", err)
		return
	}

	var buf bytes.Buffer
	if err := services.ExportReportsCSV(&buf, reports); err != nil {
		h.fail(c, "exportReportsCSV", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="water_reports.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) exportReportsXLSX(c *gin.Context) {
	reports, err := h.sortedReports(c)
	if err != nil {
		h.fail(c, "exportReportsXLSX", err)
		return
	}

	var buf bytes.Buffer
	if err := services.ExportReportsXLSX(&buf, reports); err != nil {
		h.fail(c, "exportReportsXLSX", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="water_reports.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) reportTrends(c *gin.Context) {
	reports, err := h.sortedReports(c)
	if err != nil {
		h.fail(c, "reportTrends", err)
		return
	}

	trends := services.AggregateTrends(reports)
	c.JSON(http.StatusOK, TrendsResponse{
		Trends:  services.SortedTrends(trends),
		TopZips: services.TopZipCodes(trends, topZipCodes),
	})
}

func (h *Handler) analyzeZipCode(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	analysis, err := services.AnalyzeZipCode(c.Request.Context(), h.db, h.generator, h.logger, req.Zipcode)
	if err != nil {
		h.fail(c, "analyzeZipCode", err)
		return
	}

	c.JSON(http.StatusOK, AnalysisResponse{Zipcode: req.Zipcode, Analysis: analysis})
}

// sortedReports loads reports filtered by the optional zipcode query, newest first
func (h *Handler) sortedReports(c *gin.Context) ([]model.WaterReport, error) {
	reports, err := services.LoadReports(c.Request.Context(), h.db)
	if err != nil {
		return nil, err
	}
	return services.QueryReports(reports, c.Query("zipcode"), model.NewestFirst)
}
