// Package analytics implements the feedback analytics engine: time-bucketed
// trends with a moving-average forecast, SLA breach prediction, geospatial
// hotspot scoring, department performance scoring, and a weekday/hour
// heatmap.
//
// Every exported analysis is a pure function of (records, Config, now). The
// engine performs no I/O, keeps no state between calls, and never fails on
// missing data: a record lacking a field is excluded from the computation that
// needs it and still counted everywhere else. When nothing usable remains the
// result carries Insufficient=true and a human-readable Message.
//
// Callers obtain an immutable Config from a Store snapshot and pass "now"
// explicitly, so results are deterministic for fixed inputs.
package analytics

import (
	"strings"
	"time"
)

// Urgency is the severity level of a feedback record. The zero value means
// the urgency is unknown.
type Urgency string

const (
	UrgencyUnknown  Urgency = ""
	UrgencyCritical Urgency = "Critical"
	UrgencyHigh     Urgency = "High"
	UrgencyMedium   Urgency = "Medium"
	UrgencyLow      Urgency = "Low"
)

// Urgencies lists the known urgency levels from most to least severe.
var Urgencies = []Urgency{UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow}

// ParseUrgency normalizes free-form input. "Emergency" is accepted as an alias
// for Critical (the citizen form uses that wording). Unrecognized input yields
// UrgencyUnknown.
func ParseUrgency(s string) Urgency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "emergency":
		return UrgencyCritical
	case "high":
		return UrgencyHigh
	case "medium":
		return UrgencyMedium
	case "low":
		return UrgencyLow
	default:
		return UrgencyUnknown
	}
}

// Known reports whether u is one of the four recognized levels.
func (u Urgency) Known() bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// Status is the lifecycle state of a feedback record. The zero value means
// the status is unknown.
type Status string

const (
	StatusUnknown    Status = ""
	StatusNew        Status = "New"
	StatusInReview   Status = "In Review"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// ParseStatus normalizes free-form input ("in_progress", "In Progress",
// "IN-PROGRESS" are equivalent). Unrecognized input yields StatusUnknown.
func ParseStatus(s string) Status {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", " ", "-", " ").Replace(k)
	switch k {
	case "new":
		return StatusNew
	case "in review":
		return StatusInReview
	case "in progress":
		return StatusInProgress
	case "resolved":
		return StatusResolved
	case "closed":
		return StatusClosed
	default:
		return StatusUnknown
	}
}

// Open reports whether the ticket is still subject to SLA tracking.
func (s Status) Open() bool {
	return s == StatusNew || s == StatusInReview || s == StatusInProgress
}

// Closed reports whether the ticket has been resolved or closed.
func (s Status) Closed() bool {
	return s == StatusResolved || s == StatusClosed
}

// Sentiment is the polarity assigned to a record's text. The zero value means
// no sentiment is known.
type Sentiment string

const (
	SentimentUnknown  Sentiment = ""
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Sentiments lists the known sentiment values in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// ParseSentiment normalizes free-form input; unrecognized input yields
// SentimentUnknown.
func ParseSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive
	case "neutral":
		return SentimentNeutral
	case "negative":
		return SentimentNegative
	default:
		return SentimentUnknown
	}
}

// Record is the engine's view of one feedback row. Pointer and zero-valued
// fields are treated as missing.
type Record struct {
	ID         string
	Title      string
	Timestamp  *time.Time
	UpdatedAt  *time.Time
	Category   string
	Urgency    Urgency
	Status     Status
	Sentiment  Sentiment
	Area       string
	Latitude   *float64
	Longitude  *float64
	AssignedTo string
}

// area returns the trimmed area, "" when missing.
func (r Record) area() string { return strings.TrimSpace(r.Area) }

// category returns the trimmed category, "" when missing.
func (r Record) category() string { return strings.TrimSpace(r.Category) }

// resolutionHours returns the hours from creation to last update for a closed
// record. ok is false when either timestamp is missing or they are inverted.
func (r Record) resolutionHours() (h float64, ok bool) {
	if r.Timestamp == nil || r.UpdatedAt == nil {
		return 0, false
	}
	d := r.UpdatedAt.Sub(*r.Timestamp)
	if d < 0 {
		return 0, false
	}
	return d.Hours(), true
}
