// Analytics HTTP handlers.
//
// This file exposes the analytics engine to staff:
//   - GET /admin/analytics/trends        (?period=daily|weekly|monthly)
//   - GET /admin/analytics/sla
//   - GET /admin/analytics/geo           (?top_n=&category=)
//   - GET /admin/analytics/departments
//   - GET /admin/analytics/heatmap
//   - GET /admin/analytics/overview      (?period=)
//   - GET /admin/analytics/config
//   - PUT /admin/analytics/config
//
// Every request recomputes over the current store; results are never cached.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/utils"
)

const defaultPeriod = "weekly"

func periodParam(c *gin.Context) string {
	if p := strings.TrimSpace(c.Query("period")); p != "" {
		return p
	}
	return defaultPeriod
}

// Trends godoc
// @ID          analyticsTrends
// @Summary     Submission trends
// @Description Per-period volumes, sentiment mix, top categories, growth and a short volume forecast.
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Param       period  query  string  false  "Bucket size"  Enums(daily, weekly, monthly) default(weekly)
//
// @Success     200  {object} analytics.TrendResult
// @Failure     400  {object} handlers.ErrorResponse "Unknown period"
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/analytics/trends [get]
func (h *Handlers) Trends(c *gin.Context) {
	res, err := h.anaSvc.Trends(c.Request.Context(), periodParam(c))
	if err != nil {
		failService(c, err, ErrCodeAnalyticsFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// SLA godoc
// @ID          analyticsSLA
// @Summary     SLA breach prediction
// @Description Open tickets classified as breached or at risk, with breach probabilities.
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Success     200  {object} analytics.SLAResult
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/analytics/sla [get]
func (h *Handlers) SLA(c *gin.Context) {
	res, err := h.anaSvc.SLA(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeAnalyticsFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// Geo godoc
// @ID          analyticsGeo
// @Summary     Geographic hotspots
// @Description Per-area statistics and ranked hotspots, optionally restricted to one category.
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Param       top_n     query  int     false  "Hotspot list length (0 uses the configured default)"  minimum(0)
// @Param       category  query  string  false  "Category filter"  example(Healthcare)
//
// @Success     200  {object} analytics.GeoResult
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/analytics/geo [get]
func (h *Handlers) Geo(c *gin.Context) {
	topN := utils.Bounded(c.Query("top_n"), 0, 0, 0)
	res, err := h.anaSvc.Geo(c.Request.Context(), topN, strings.TrimSpace(c.Query("category")))
	if err != nil {
		failService(c, err, ErrCodeAnalyticsFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// Departments godoc
// @ID          analyticsDepartments
// @Summary     Department performance
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Success     200  {object} analytics.DepartmentResult
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/analytics/departments [get]
func (h *Handlers) Departments(c *gin.Context) {
	res, err := h.anaSvc.Departments(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeAnalyticsFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// Heatmap godoc
// @ID          analyticsHeatmap
// @Summary     Weekday × hour heatmap
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Success     200  {object} analytics.HeatmapResult
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/analytics/heatmap [get]
func (h *Handlers) Heatmap(c *gin.Context) {
	res, err := h.anaSvc.Heatmap(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeAnalyticsFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// Overview godoc
// @ID          analyticsOverview
// @Summary     All analyses at once
// @Description Runs every analysis over one snapshot of the store.
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Param       period  query  string  false  "Trend bucket size"  Enums(daily, weekly, monthly) default(weekly)
//
// @Success     200  {object} services.Overview
// @Failure     400  {object} handlers.ErrorResponse "Unknown period"
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/analytics/overview [get]
func (h *Handlers) Overview(c *gin.Context) {
	res, err := h.anaSvc.Overview(c.Request.Context(), periodParam(c))
	if err != nil {
		failService(c, err, ErrCodeAnalyticsFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// GetAnalyticsConfig godoc
// @ID          getAnalyticsConfig
// @Summary     Active analytics configuration
// @Tags        Analytics
// @Produce     json
// @Security    AdminKey
//
// @Success     200  {object} analytics.Config
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Router      /admin/analytics/config [get]
func (h *Handlers) GetAnalyticsConfig(c *gin.Context) {
	ok(c, http.StatusOK, h.anaSvc.CurrentConfig())
}

// PutAnalyticsConfig godoc
// @ID          putAnalyticsConfig
// @Summary     Replace the analytics configuration
// @Description Validates and activates a new configuration. Analyses already running finish with the previous one.
// @Tags        Analytics
// @Accept      json
// @Produce     json
// @Security    AdminKey
//
// @Param       body  body  analytics.Config  true  "Complete configuration"
//
// @Success     200  {object} analytics.Config
// @Failure     400  {object} handlers.ErrorResponse "Invalid configuration"
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Router      /admin/analytics/config [put]
func (h *Handlers) PutAnalyticsConfig(c *gin.Context) {
	var cfg analytics.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	active, err := h.anaSvc.ReplaceConfig(cfg)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, active)
}
