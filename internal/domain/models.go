// Package domain defines the persistence models for citizen feedback. These
// types are mapped with GORM and form the core data layer of the service.
package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/citizen-feedback/internal/analytics"
)

// Default values applied to new submissions.
const (
	DefaultStatus   = "New"
	DefaultPriority = "Normal"
)

// Feedback is a single citizen submission together with its rule-based
// enrichment and the admin workflow fields.
//
// Fields:
//   - ID: 8-character uppercase tracking code handed to the citizen.
//   - Timestamp: creation time (UTC). UpdatedAt moves on every admin change
//     and is read as the resolution time once Status is Resolved/Closed.
//   - Name/Email/Phone: optional citizen contact details.
//   - FeedbackType/Category/Urgency/Area: classification used by analytics.
//   - Address/Location/Latitude/Longitude: optional free-form and point location.
//   - Title/Text: the submission itself.
//   - Sentiment/SentimentScore/Keywords/Summary: text analysis output.
//   - Status/AdminNotes/AssignedTo/Priority: admin workflow.
type Feedback struct {
	ID        string    `json:"id"         gorm:"type:varchar(50);primaryKey"`
	Timestamp time.Time `json:"timestamp"  gorm:"not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Name  string `json:"name,omitempty"  gorm:"type:varchar(200)"`
	Email string `json:"email,omitempty" gorm:"type:varchar(200);index"`
	Phone string `json:"phone,omitempty" gorm:"type:varchar(50)"`

	FeedbackType string `json:"feedback_type" gorm:"type:varchar(100);index"`
	Category     string `json:"category"      gorm:"type:varchar(100);index"`
	Urgency      string `json:"urgency"       gorm:"type:varchar(50);index"`

	Area      string   `json:"area"                gorm:"type:varchar(200);index"`
	Address   string   `json:"address,omitempty"   gorm:"type:text"`
	Location  string   `json:"location,omitempty"  gorm:"type:text"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Title string `json:"title"    gorm:"type:varchar(500)"`
	Text  string `json:"feedback" gorm:"column:feedback;type:text"`

	Sentiment      string                      `json:"sentiment"       gorm:"type:varchar(50);index"`
	SentimentScore float64                     `json:"sentiment_score"`
	Keywords       datatypes.JSONSlice[string] `json:"keywords"`
	Summary        string                      `json:"summary"         gorm:"type:text"`

	Status     string `json:"status"      gorm:"type:varchar(50);not null;default:'New';index"`
	AdminNotes string `json:"admin_notes" gorm:"type:text"`
	AssignedTo string `json:"assigned_to" gorm:"type:varchar(200)"`
	Priority   string `json:"priority"    gorm:"type:varchar(50);not null;default:'Normal';index"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// ToRecord converts a stored row into the analytics engine's view. Zero
// timestamps become missing values and free-form enums are normalized.
func (f Feedback) ToRecord() analytics.Record {
	r := analytics.Record{
		ID:         f.ID,
		Title:      f.Title,
		Category:   strings.TrimSpace(f.Category),
		Urgency:    analytics.ParseUrgency(f.Urgency),
		Status:     analytics.ParseStatus(f.Status),
		Sentiment:  analytics.ParseSentiment(f.Sentiment),
		Area:       strings.TrimSpace(f.Area),
		Latitude:   f.Latitude,
		Longitude:  f.Longitude,
		AssignedTo: f.AssignedTo,
	}
	if !f.Timestamp.IsZero() {
		ts := f.Timestamp
		r.Timestamp = &ts
	}
	if !f.UpdatedAt.IsZero() {
		up := f.UpdatedAt
		r.UpdatedAt = &up
	}
	return r
}

// ToRecords converts a slice of rows.
func ToRecords(items []Feedback) []analytics.Record {
	out := make([]analytics.Record, len(items))
	for i := range items {
		out[i] = items[i].ToRecord()
	}
	return out
}

// SearchText is the text indexed for similarity lookups.
func (f Feedback) SearchText() string {
	return strings.TrimSpace(f.Title + " " + f.Text)
}
