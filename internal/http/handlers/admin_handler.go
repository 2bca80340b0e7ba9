// Admin HTTP handlers.
//
// This file exposes the staff endpoints (guarded by X-Admin-Key in the router):
//   - GET    /admin/feedback               (list, filtered, paginated, ETag support)
//   - PATCH  /admin/feedback/{id}          (status/assignment/notes/priority)
//   - DELETE /admin/feedback/{id}          (remove)
//   - GET    /admin/feedback/{id}/similar  (related submissions)
//   - GET    /admin/stats                  (aggregate counters)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/http/middleware"
	"github.com/tbourn/citizen-feedback/internal/search"
	"github.com/tbourn/citizen-feedback/internal/utils"
)

const (
	defaultSimilarK = 5
	maxSimilarK     = 50
)

// ListFeedbackResponse wraps a page of submissions and pagination information.
type ListFeedbackResponse struct {
	Feedback   []domain.Feedback `json:"feedback"`
	Pagination Pagination        `json:"pagination"`
}

// SimilarFeedbackResponse lists the submissions closest to the requested one.
type SimilarFeedbackResponse struct {
	ID      string          `json:"id"`
	Similar []search.Result `json:"similar"`
}

// ListFeedback godoc
// @ID          listFeedback
// @Summary     List feedback (paginated)
// @Description Returns a filtered page of submissions, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"feedback:12:1717000000\")
// @Param       status         query   string  false "Status filter"               example(New)
// @Param       category       query   string  false "Category filter"             example(Healthcare)
// @Param       urgency        query   string  false "Urgency filter"              example(High)
// @Param       sentiment      query   string  false "Sentiment filter"            example(Negative)
// @Param       q              query   string  false "Substring over title and text"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFeedbackResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/feedback [get]
func (h *Handlers) ListFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, last, err := h.fbSvc.Version(ctx); err == nil {
		var ts int64
		if last != nil {
			ts = last.Unix()
		}
		etag := fmt.Sprintf(`W/"feedback:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	f := domain.FeedbackFilter{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Urgency:   c.Query("urgency"),
		Sentiment: c.Query("sentiment"),
		Query:     c.Query("q"),
	}
	items, total, err := h.fbSvc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListFeedbackResponse{
		Feedback:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// UpdateFeedback godoc
// @ID          updateFeedback
// @Summary     Update a submission
// @Description Applies a partial update. Status accepts New, In Progress, Resolved, Closed; priority accepts Low, Normal, High, Critical.
// @Description Moving a submission into Resolved or Closed fires the feedback-resolved webhook.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    AdminKey
//
// @Param       id    path  string                 true  "Tracking ID"  example(3F9A2C1B)
// @Param       body  body  domain.FeedbackUpdate  true  "Fields to change"
//
// @Success     200  {object} domain.Feedback
// @Failure     400  {object} handlers.ErrorResponse "Invalid update"
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     404  {object} handlers.ErrorResponse "Feedback not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/feedback/{id} [patch]
func (h *Handlers) UpdateFeedback(c *gin.Context) {
	var upd domain.FeedbackUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	fb, err := h.fbSvc.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("feedback_id", fb.ID).
		Str("status", fb.Status).
		Str("priority", fb.Priority).
		Msg("feedback updated")
	ok(c, http.StatusOK, fb)
}

// DeleteFeedback godoc
// @ID          deleteFeedback
// @Summary     Delete a submission
// @Tags        Admin
// @Security    AdminKey
//
// @Param       id  path  string  true  "Tracking ID"  example(3F9A2C1B)
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     404  {object} handlers.ErrorResponse "Feedback not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/feedback/{id} [delete]
func (h *Handlers) DeleteFeedback(c *gin.Context) {
	if err := h.fbSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// SimilarFeedback godoc
// @ID          similarFeedback
// @Summary     Find related submissions
// @Description Ranks other submissions by token overlap (Jaccard) of title and text.
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Param       id  path   string  true   "Tracking ID"           example(3F9A2C1B)
// @Param       k   query  int     false  "Maximum results"       minimum(1) maximum(50) default(5)
//
// @Success     200  {object} handlers.SimilarFeedbackResponse
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     404  {object} handlers.ErrorResponse "Feedback not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/feedback/{id}/similar [get]
func (h *Handlers) SimilarFeedback(c *gin.Context) {
	k := utils.Bounded(c.Query("k"), defaultSimilarK, 1, maxSimilarK)
	res, err := h.fbSvc.Similar(c.Request.Context(), c.Param("id"), k)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, SimilarFeedbackResponse{ID: c.Param("id"), Similar: res})
}

// FeedbackStats godoc
// @ID          feedbackStats
// @Summary     Aggregate counters
// @Description Totals by category, sentiment, status and urgency plus the average sentiment score.
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Success     200  {object} services.FeedbackStats
// @Failure     401  {object} handlers.ErrorResponse "Invalid admin key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/stats [get]
func (h *Handlers) FeedbackStats(c *gin.Context) {
	st, err := h.fbSvc.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
