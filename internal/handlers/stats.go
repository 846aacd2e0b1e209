package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qingbolan/github-yearbook/internal/middleware"
	"github.com/qingbolan/github-yearbook/internal/services"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

// topLanguageCount is how many languages the API reports individually before
// collapsing the remainder into an "Other" bucket.
const topLanguageCount = 8

type StatsHandler struct {
	yearbookService *services.YearbookService
	exportService   *services.ExportService
}

func NewStatsHandler(yearbookService *services.YearbookService, exportService *services.ExportService) *StatsHandler {
	return &StatsHandler{
		yearbookService: yearbookService,
		exportService:   exportService,
	}
}

// GetStats handles GET /api/stats/:username/:period
func (h *StatsHandler) GetStats(c *gin.Context) {
	req := h.statsRequest(c)

	stats, err := h.yearbookService.GetStats(c.Request.Context(), req, nil)
	if err != nil {
		h.renderError(c, req.Username, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"topLanguages": services.TopLanguages(stats.LanguageStats, topLanguageCount),
	})
}

// ExportStats handles GET /api/stats/:username/:period/export and streams the
// yearbook as an XLSX workbook.
func (h *StatsHandler) ExportStats(c *gin.Context) {
	req := h.statsRequest(c)

	stats, err := h.yearbookService.GetStats(c.Request.Context(), req, nil)
	if err != nil {
		h.renderError(c, req.Username, err)
		return
	}

	workbook, err := h.exportService.ExportXLSX(stats)
	if err != nil {
		logger.WithError(err).Errorf("Failed to export stats for %s", req.Username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate export"})
		return
	}

	filename := fmt.Sprintf("%s-%d-yearbook.xlsx", stats.Username, stats.Year)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func (h *StatsHandler) statsRequest(c *gin.Context) services.StatsRequest {
	return services.StatsRequest{
		Username:     c.Param("username"),
		Period:       c.Param("period"),
		StartDate:    c.Query("start"),
		EndDate:      c.Query("end"),
		Token:        middleware.GetToken(c),
		ForceRefresh: c.Query("refresh") == "true",
	}
}

func (h *StatsHandler) renderError(c *gin.Context, username string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be a year, pastyear, pastmonth or pastweek"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("user %s not found", username)})
	case errors.Is(err, services.ErrInsufficientPermissions):
		c.JSON(http.StatusForbidden, gin.H{"error": "token cannot read this account's contributions"})
	default:
		logger.WithError(err).Errorf("Failed to build stats for %s", username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch contribution data"})
	}
}
