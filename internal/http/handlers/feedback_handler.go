// Feedback HTTP handlers (public).
//
// This file exposes the citizen-facing endpoints:
//   - POST /feedback       (submit, Idempotency-Key aware)
//   - GET  /feedback/{id}  (track by tracking ID)
//
// Handlers in this file are transport-thin: they validate input, delegate to
// application services, and translate domain/service errors into HTTP results.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous submission
// exists for the same key within the same scope (route + caller), the handler
// returns that stored row and sets `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/citizen-feedback/internal/http/middleware"
	"github.com/tbourn/citizen-feedback/internal/services"
)

//
// DTOs
//

// SubmitFeedbackRequest is the JSON payload for a citizen submission. Only
// the feedback text is required; category and urgency are inferred from the
// text when omitted.
type SubmitFeedbackRequest struct {
	Name         string   `json:"name"          binding:"max=200"                     example:"Jane Citizen"`
	Email        string   `json:"email"         binding:"omitempty,email,max=200"     example:"jane@example.com"`
	Phone        string   `json:"phone"         binding:"max=50"                      example:"555-0100"`
	FeedbackType string   `json:"feedback_type" binding:"max=100"                     example:"Complaint"`
	Category     string   `json:"category"      binding:"max=100"                     example:"Roads & Transportation"`
	Urgency      string   `json:"urgency"       binding:"max=50"                      example:"High"`
	Area         string   `json:"area"          binding:"max=200"                     example:"Downtown"`
	Address      string   `json:"address"       binding:"max=1000"                    example:"12 Main St"`
	Location     string   `json:"location"      binding:"max=1000"                    example:"Corner of Main and 3rd"`
	Latitude     *float64 `json:"latitude"      binding:"omitempty,gte=-90,lte=90"    example:"40.7589"`
	Longitude    *float64 `json:"longitude"     binding:"omitempty,gte=-180,lte=180"  example:"-73.9851"`
	Title        string   `json:"title"         binding:"max=500"                     example:"Pothole on Main St"`
	// Feedback is the submission text. It must be non-empty.
	Feedback string `json:"feedback" binding:"required,min=1" example:"A deep pothole near the school is dangerous for cyclists."`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes user text for consistent downstream behavior:
// CRLF/CR become LF, runs of 3+ LFs collapse to two, and surrounding
// whitespace is trimmed.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func (r SubmitFeedbackRequest) input() services.SubmitInput {
	return services.SubmitInput{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		FeedbackType: r.FeedbackType,
		Category:     r.Category,
		Urgency:      r.Urgency,
		Area:         r.Area,
		Address:      r.Address,
		Location:     r.Location,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Title:        sanitizeText(r.Title),
		Text:         sanitizeText(r.Feedback),
	}
}

//
// Handlers
//

// SubmitFeedback godoc
// @ID          submitFeedback
// @Summary     Submit citizen feedback
// @Description Stores a submission, runs text analysis (sentiment, keywords, category, urgency) and returns the row with its tracking ID.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SubmitFeedbackRequest  true  "Submission payload"
//
// @Success     201  {object}  domain.Feedback
// @Header      201  {string}  Idempotency-Replayed  "true when an earlier submission was replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /feedback [post]
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid feedback payload: feedback text is required, email must be valid")
		return
	}
	in := req.input()
	if in.Text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feedback text is required")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	fb, replayed, err := h.fbSvc.SubmitIdempotent(c.Request.Context(), middleware.IdempotencyScope(c), key, in)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
	} else {
		middleware.LoggerFrom(c).Info().
			Str("feedback_id", fb.ID).
			Str("category", fb.Category).
			Str("urgency", fb.Urgency).
			Msg("feedback submitted")
	}
	ok(c, http.StatusCreated, fb)
}

// GetFeedback godoc
// @ID          getFeedback
// @Summary     Track a submission
// @Description Returns the submission identified by its tracking ID (case-insensitive).
// @Tags        Feedback
// @Produce     json
//
// @Param       id   path    string  true  "Tracking ID"  example(3F9A2C1B)
//
// @Success     200  {object}  domain.Feedback
// @Failure     404  {object}  handlers.ErrorResponse  "Feedback not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /feedback/{id} [get]
func (h *Handlers) GetFeedback(c *gin.Context) {
	fb, err := h.fbSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, fb)
}
