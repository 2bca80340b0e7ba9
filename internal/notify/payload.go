package notify

import (
	"strings"
	"time"
	"unicode"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/domain"
)

// Submitted is the feedback-submitted body.
type Submitted struct {
	FeedbackID   string `json:"feedback_id"`
	CitizenName  string `json:"citizen_name"`
	CitizenEmail string `json:"citizen_email"`
	Email        string `json:"email"`
	CitizenPhone string `json:"citizen_phone"`
	Category     string `json:"category"`
	Title        string `json:"title"`
	Feedback     string `json:"feedback"`
	Location     string `json:"location"`
	Urgency      string `json:"urgency"`
	Timestamp    string `json:"timestamp"`
	Status       string `json:"status"`
	Sentiment    string `json:"sentiment"`
}

// Resolved is the feedback-resolved body.
type Resolved struct {
	FeedbackID        string `json:"feedback_id"`
	CitizenName       string `json:"citizen_name"`
	CitizenEmail      string `json:"citizen_email"`
	Category          string `json:"category"`
	Title             string `json:"title"`
	OriginalFeedback  string `json:"original_feedback"`
	OriginalTimestamp string `json:"original_timestamp"`
	ResolvedTimestamp string `json:"resolved_timestamp"`
	AssignedTo        string `json:"assigned_to"`
	ResolutionNotes   string `json:"resolution_notes"`
}

// SLABreached is the sla-breached body emitted by the watchdog.
type SLABreached struct {
	CheckedAt   string                 `json:"checked_at"`
	BreachCount int                    `json:"breach_count"`
	AtRiskCount int                    `json:"at_risk_count"`
	Tickets     []analytics.TicketRisk `json:"tickets"`
}

// NewSubmitted builds the submission event for fb.
func NewSubmitted(fb domain.Feedback) Submitted {
	email := clean(fb.Email)
	location := fb.Location
	if strings.TrimSpace(location) == "" {
		location = fb.Area
	}
	return Submitted{
		FeedbackID:   clean(fb.ID),
		CitizenName:  clean(fb.Name),
		CitizenEmail: email,
		Email:        email,
		CitizenPhone: orDefault(clean(fb.Phone), "N/A"),
		Category:     clean(fb.Category),
		Title:        clean(fb.Title),
		Feedback:     clean(fb.Text),
		Location:     clean(location),
		Urgency:      orDefault(clean(fb.Urgency), "Normal"),
		Timestamp:    stamp(fb.Timestamp),
		Status:       orDefault(clean(fb.Status), domain.DefaultStatus),
		Sentiment:    orDefault(clean(fb.Sentiment), "Neutral"),
	}
}

// NewResolved builds the resolution event for fb; UpdatedAt is the
// resolution time.
func NewResolved(fb domain.Feedback) Resolved {
	return Resolved{
		FeedbackID:        clean(fb.ID),
		CitizenName:       clean(fb.Name),
		CitizenEmail:      clean(fb.Email),
		Category:          clean(fb.Category),
		Title:             clean(fb.Title),
		OriginalFeedback:  clean(fb.Text),
		OriginalTimestamp: stamp(fb.Timestamp),
		ResolvedTimestamp: stamp(fb.UpdatedAt),
		AssignedTo:        clean(fb.AssignedTo),
		ResolutionNotes:   clean(fb.AdminNotes),
	}
}

// NewSLABreached summarizes a watchdog run; only breached tickets are listed.
func NewSLABreached(res analytics.SLAResult, at time.Time) SLABreached {
	return SLABreached{
		CheckedAt:   stamp(at),
		BreachCount: res.BreachCount,
		AtRiskCount: res.AtRiskCount,
		Tickets:     res.Breached,
	}
}

// clean drops pictographic symbols (emoji and the like) that some workflow
// engines reject, then trims.
func clean(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.Is(unicode.So, r) || r == '\uFE0F' || r == '\u200D' {
			return -1
		}
		return r
	}, s))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
