// Package handlers provides HTTP handler implementations for the public API.
//
// This file declares the service contracts the handlers depend on, the
// Handlers aggregate, shared DTOs and the helpers used across endpoints
// (pagination parsing).
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/search"
	"github.com/tbourn/citizen-feedback/internal/services"
	"github.com/tbourn/citizen-feedback/internal/utils"
)

//
// Service contracts (context-aware)
//

// FeedbackService covers the citizen submission flow and the staff workflow
// over stored feedback.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type FeedbackService interface {
	// SubmitIdempotent stores a submission; a repeated (scope, key) pair
	// returns the earlier row with replayed=true.
	SubmitIdempotent(ctx context.Context, scope, key string, in services.SubmitInput) (*domain.Feedback, bool, error)
	// Get returns one submission by tracking ID.
	Get(ctx context.Context, id string) (*domain.Feedback, error)
	// ListPage returns a filtered page, newest first, and the total count.
	ListPage(ctx context.Context, f domain.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error)
	// Version returns (row count, last change) for cache validators.
	Version(ctx context.Context) (int64, *time.Time, error)
	// Update applies a partial staff update.
	Update(ctx context.Context, id string, upd domain.FeedbackUpdate) (*domain.Feedback, error)
	// Delete removes a submission.
	Delete(ctx context.Context, id string) error
	// Stats tallies the store.
	Stats(ctx context.Context) (services.FeedbackStats, error)
	// Similar lists the rows closest to id by token overlap.
	Similar(ctx context.Context, id string, k int) ([]search.Result, error)
}

// AnalyticsService exposes the analytics engine over the current store.
type AnalyticsService interface {
	Trends(ctx context.Context, period string) (analytics.TrendResult, error)
	SLA(ctx context.Context) (analytics.SLAResult, error)
	Geo(ctx context.Context, topN int, category string) (analytics.GeoResult, error)
	Departments(ctx context.Context) (analytics.DepartmentResult, error)
	Heatmap(ctx context.Context) (analytics.HeatmapResult, error)
	Overview(ctx context.Context, period string) (services.Overview, error)
	CurrentConfig() analytics.Config
	ReplaceConfig(cfg analytics.Config) (analytics.Config, error)
}

//
// Handler wiring
//

// Handlers groups the public, staff and analytics endpoints.
type Handlers struct {
	fbSvc  FeedbackService
	anaSvc AnalyticsService
}

// New constructs a Handlers instance bound to the given services.
func New(fbSvc FeedbackService, anaSvc AnalyticsService) *Handlers {
	return &Handlers{fbSvc: fbSvc, anaSvc: anaSvc}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPagination reads page and page_size, bounded to [1, ∞) and [1, 100].
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.Bounded(c.Query("page"), defaultPage, 1, 0)
	pageSize = utils.Bounded(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return page, pageSize
}
