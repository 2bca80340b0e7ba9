package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/domain"
)

func fastOpts(retries int) Options {
	return Options{Timeout: 2 * time.Second, MaxRetries: retries, InitialInterval: time.Millisecond}
}

func TestDisabled(t *testing.T) {
	var nilHook *Webhook
	assert.False(t, nilHook.Enabled())

	w := New("   ", fastOpts(0))
	assert.False(t, w.Enabled())
	assert.Equal(t, "", w.URL(EventSubmitted))
	assert.ErrorIs(t, w.Send(context.Background(), EventSubmitted, struct{}{}), ErrDisabled)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://n8n/webhook/feedback-submitted", New("http://n8n/webhook/", fastOpts(0)).URL(EventSubmitted))
	assert.Equal(t, "http://n8n/webhook/feedback-resolved", New("http://n8n/webhook/feedback-resolved", fastOpts(0)).URL(EventResolved))
	assert.Equal(t, "http://hooks/sla-breached", New("http://hooks", fastOpts(0)).URL(EventSLABreached))
}

func TestSend_Success(t *testing.T) {
	var got Submitted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webhook/feedback-submitted", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := New(srv.URL+"/webhook", fastOpts(2))
	fb := domain.Feedback{ID: "AB12CD34", Name: "Ana 🚧", Email: "a@x.io", Text: "Broken light", Timestamp: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, w.Send(context.Background(), EventSubmitted, NewSubmitted(fb)))

	assert.Equal(t, "AB12CD34", got.FeedbackID)
	assert.Equal(t, "Ana", got.CitizenName)
	assert.Equal(t, "N/A", got.CitizenPhone)
	assert.Equal(t, "Normal", got.Urgency)
	assert.Equal(t, "2025-01-01T08:00:00Z", got.Timestamp)
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := New(srv.URL, fastOpts(3))
	require.NoError(t, w.Send(context.Background(), EventResolved, map[string]string{"x": "y"}))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSend_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := New(srv.URL, fastOpts(1))
	err := w.Send(context.Background(), EventResolved, struct{}{})
	require.Error(t, err)
	var se *statusError
	assert.True(t, errors.As(err, &se))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSend_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	w := New(srv.URL, fastOpts(5))
	err := w.Send(context.Background(), EventSubmitted, struct{}{})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSend_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := New(srv.URL, fastOpts(5))
	assert.Error(t, w.Send(ctx, EventSubmitted, struct{}{}))
}

func TestPayloads(t *testing.T) {
	created := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	fb := domain.Feedback{
		ID: "ZX81", Name: "Bo", Email: "b@x.io", Phone: "555", Area: "Harlem",
		Category: "Roads", Urgency: "High", Title: "Hole", Text: "Deep hole",
		Timestamp: created, UpdatedAt: created.Add(26 * time.Hour),
		AssignedTo: "crew-2", AdminNotes: "patched", Status: "Resolved", Sentiment: "Negative",
	}

	s := NewSubmitted(fb)
	assert.Equal(t, "Harlem", s.Location)
	assert.Equal(t, "b@x.io", s.Email)
	assert.Equal(t, "Resolved", s.Status)

	r := NewResolved(fb)
	assert.Equal(t, "2025-02-02T11:00:00Z", r.ResolvedTimestamp)
	assert.Equal(t, "patched", r.ResolutionNotes)
	assert.Equal(t, "Deep hole", r.OriginalFeedback)

	res := analytics.SLAResult{BreachCount: 1, AtRiskCount: 2, Breached: []analytics.TicketRisk{{ID: "ZX81"}}}
	b := NewSLABreached(res, created)
	assert.Equal(t, 1, b.BreachCount)
	assert.Len(t, b.Tickets, 1)
	assert.Equal(t, "2025-02-01T09:00:00Z", b.CheckedAt)

	assert.Equal(t, "", stamp(time.Time{}))
	assert.Equal(t, "ok", clean(" ok ✅ "))
}
