package domain

import "strings"

// FeedbackFilter narrows admin listings. Empty fields match everything;
// enum fields compare case-insensitively and Query is a case-insensitive
// substring match over title and text.
type FeedbackFilter struct {
	Status    string
	Category  string
	Urgency   string
	Sentiment string
	Query     string
}

// Matches applies the filter in memory, for stores without a query engine.
func (f FeedbackFilter) Matches(fb Feedback) bool {
	eq := func(want, got string) bool {
		want = strings.TrimSpace(want)
		return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
	}
	if !eq(f.Status, fb.Status) || !eq(f.Category, fb.Category) ||
		!eq(f.Urgency, fb.Urgency) || !eq(f.Sentiment, fb.Sentiment) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(fb.Title), q) ||
			strings.Contains(strings.ToLower(fb.Text), q)
	}
	return true
}

// FeedbackUpdate is a partial admin update; nil fields are left unchanged.
type FeedbackUpdate struct {
	Status     *string `json:"status,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
	Priority   *string `json:"priority,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u FeedbackUpdate) Empty() bool {
	return u.Status == nil && u.AssignedTo == nil && u.AdminNotes == nil && u.Priority == nil
}

// Apply copies the set fields onto fb.
func (u FeedbackUpdate) Apply(fb *Feedback) {
	if u.Status != nil {
		fb.Status = *u.Status
	}
	if u.AssignedTo != nil {
		fb.AssignedTo = *u.AssignedTo
	}
	if u.AdminNotes != nil {
		fb.AdminNotes = *u.AdminNotes
	}
	if u.Priority != nil {
		fb.Priority = *u.Priority
	}
}
