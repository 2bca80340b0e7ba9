// Package services – FeedbackService
//
// This file implements FeedbackService, which owns the lifecycle of a citizen
// submission: validation, rule-based enrichment (sentiment, keywords,
// summary, category and urgency suggestion), tracking ID allocation,
// idempotent replays, admin updates, aggregate statistics and similarity
// lookups. Lifecycle events are forwarded to the configured Notifier in the
// background.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/citizen-feedback/internal/analytics"
	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/notify"
	"github.com/tbourn/citizen-feedback/internal/repo"
	"github.com/tbourn/citizen-feedback/internal/search"
	"github.com/tbourn/citizen-feedback/internal/textanalysis"
)

const (
	defaultUrgency      = "Medium"
	defaultMaxRunes     = 5000
	defaultIdemTTL      = 24 * time.Hour
	idAllocAttempts     = 5
	notifyTimeout       = 30 * time.Second
	trackingIDLength    = 8
	defaultFeedbackType = "Feedback"
)

// Priorities accepted by Update.
var Priorities = []string{"Low", "Normal", "High", "Critical"}

// SubmitInput is a citizen submission before enrichment.
type SubmitInput struct {
	Name         string
	Email        string
	Phone        string
	FeedbackType string
	Category     string
	Urgency      string
	Area         string
	Address      string
	Location     string
	Latitude     *float64
	Longitude    *float64
	Title        string
	Text         string
}

// FeedbackStats aggregates the whole store.
type FeedbackStats struct {
	Total             int            `json:"total"`
	ByCategory        map[string]int `json:"by_category"`
	BySentiment       map[string]int `json:"by_sentiment"`
	ByStatus          map[string]int `json:"by_status"`
	ByUrgency         map[string]int `json:"by_urgency"`
	AvgSentimentScore *float64       `json:"avg_sentiment_score,omitempty"`
}

// FeedbackService implements the submission and admin use-cases.
type FeedbackService struct {
	Store       FeedbackStore
	Idempotency IdempotencyStore
	Analyzer    textanalysis.Analyzer
	Notifier    Notifier

	// MaxTextRunes caps the feedback text (default 5000).
	MaxTextRunes int
	// IdempotencyTTL is how long a submission can be replayed (default 24h).
	IdempotencyTTL time.Duration

	Now   func() time.Time
	NewID func() string
}

// NewFeedbackService wires a service with defaults.
func NewFeedbackService(store FeedbackStore, idem IdempotencyStore, n Notifier) *FeedbackService {
	return &FeedbackService{
		Store:          store,
		Idempotency:    idem,
		Notifier:       n,
		MaxTextRunes:   defaultMaxRunes,
		IdempotencyTTL: defaultIdemTTL,
	}
}

func (s *FeedbackService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *FeedbackService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return NewTrackingID()
}

// NewTrackingID returns an 8-character uppercase hex code.
func NewTrackingID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:trackingIDLength])
}

// Submit validates, enriches and stores a submission. The stored row is
// returned with its tracking ID.
func (s *FeedbackService) Submit(ctx context.Context, in SubmitInput) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("feedback.category", in.Category),
			attribute.String("feedback.area", in.Area),
		),
	)
	defer span.End()

	fb, err := s.build(in)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		fb.ID = s.newID()
		err = s.Store.Create(ctx, fb)
		if err == nil {
			break
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		if attempt+1 >= idAllocAttempts {
			return nil, ErrIDExhausted
		}
	}
	span.SetAttributes(attribute.String("feedback.id", fb.ID))

	submissions.WithLabelValues(fb.Category, fb.Sentiment).Inc()
	s.emit(notify.EventSubmitted, notify.NewSubmitted(*fb))
	return fb, nil
}

// SubmitIdempotent behaves like Submit but, when key is non-empty, replays
// the row created by an earlier call with the same (scope, key) instead of
// creating another. replayed reports which path was taken.
func (s *FeedbackService) SubmitIdempotent(ctx context.Context, scope, key string, in SubmitInput) (fb *domain.Feedback, replayed bool, err error) {
	if key == "" || s.Idempotency == nil {
		fb, err = s.Submit(ctx, in)
		return fb, false, err
	}
	now := s.now()
	if rec, gerr := s.Idempotency.GetIdempotency(ctx, scope, key, now); gerr == nil && rec != nil {
		if prev, perr := s.Store.Get(ctx, rec.ResourceID); perr == nil {
			return prev, true, nil
		}
	}

	fb, err = s.Submit(ctx, in)
	if err != nil {
		return nil, false, err
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdemTTL
	}
	if _, cerr := s.Idempotency.CreateIdempotency(ctx, scope, key, fb.ID, 201, now, ttl); cerr != nil && !errors.Is(cerr, repo.ErrDuplicate) {
		log.Warn().Err(cerr).Str("feedback_id", fb.ID).Msg("idempotency record not stored")
	}
	return fb, false, nil
}

// build validates the input and produces an enriched row without an ID.
func (s *FeedbackService) build(in SubmitInput) (*domain.Feedback, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: feedback text is required", ErrInvalidFeedback)
	}
	limit := s.MaxTextRunes
	if limit <= 0 {
		limit = defaultMaxRunes
	}
	if utf8.RuneCountInString(text) > limit {
		return nil, ErrTooLong
	}
	if in.Latitude != nil && (math.IsNaN(*in.Latitude) || *in.Latitude < -90 || *in.Latitude > 90) {
		return nil, fmt.Errorf("%w: latitude out of range", ErrInvalidFeedback)
	}
	if in.Longitude != nil && (math.IsNaN(*in.Longitude) || *in.Longitude < -180 || *in.Longitude > 180) {
		return nil, fmt.Errorf("%w: longitude out of range", ErrInvalidFeedback)
	}

	title := strings.TrimSpace(in.Title)
	full := strings.TrimSpace(title + " " + text)
	res := s.Analyzer.Analyze(text)

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = s.Analyzer.DetectCategory(full)
	}

	urgency := strings.TrimSpace(in.Urgency)
	if u := analytics.ParseUrgency(urgency); u.Known() {
		urgency = string(u)
	}
	urgency = s.Analyzer.SuggestUrgency(urgency, full)
	if urgency == "" {
		urgency = defaultUrgency
	}

	ftype := strings.TrimSpace(in.FeedbackType)
	if ftype == "" {
		ftype = defaultFeedbackType
	}

	now := s.now()
	return &domain.Feedback{
		Timestamp:      now,
		UpdatedAt:      now,
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		FeedbackType:   ftype,
		Category:       category,
		Urgency:        urgency,
		Area:           strings.TrimSpace(in.Area),
		Address:        strings.TrimSpace(in.Address),
		Location:       strings.TrimSpace(in.Location),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Title:          title,
		Text:           text,
		Sentiment:      res.Sentiment,
		SentimentScore: res.Score,
		Keywords:       res.Keywords,
		Summary:        res.Summary,
		Status:         domain.DefaultStatus,
		Priority:       domain.DefaultPriority,
	}, nil
}

// Get returns a row by tracking ID. IDs are matched case-insensitively.
func (s *FeedbackService) Get(ctx context.Context, id string) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("feedback.id", id)))
	defer span.End()

	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return nil, ErrFeedbackNotFound
	}
	fb, err := s.Store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrFeedbackNotFound
	}
	return fb, err
}

// ListPage returns a filtered page, newest first.
func (s *FeedbackService) ListPage(ctx context.Context, f domain.FeedbackFilter, page, pageSize int) ([]domain.Feedback, int64, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
			attribute.String("filter.status", f.Status),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	items, total, err := s.Store.List(ctx, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []domain.Feedback{}
	}
	return items, total, nil
}

// Version returns the store's change marker for cache validators.
func (s *FeedbackService) Version(ctx context.Context) (count int64, last *time.Time, err error) {
	return s.Store.Stats(ctx)
}

// Update applies an admin change. Status and priority are normalized to
// their canonical spelling. A transition into Resolved or Closed emits a
// resolution event.
func (s *FeedbackService) Update(ctx context.Context, id string, upd domain.FeedbackUpdate) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("feedback.id", id)))
	defer span.End()

	if upd.Empty() {
		return nil, ErrEmptyUpdate
	}
	if upd.Status != nil {
		st := analytics.ParseStatus(*upd.Status)
		if st == analytics.StatusUnknown {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *upd.Status)
		}
		v := string(st)
		upd.Status = &v
	}
	if upd.Priority != nil {
		p, ok := parsePriority(*upd.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, *upd.Priority)
		}
		upd.Priority = &p
	}

	id = strings.ToUpper(strings.TrimSpace(id))
	prev, err := s.Store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}

	fb, err := s.Store.Update(ctx, id, upd, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}

	if !analytics.ParseStatus(prev.Status).Closed() && analytics.ParseStatus(fb.Status).Closed() {
		s.emit(notify.EventResolved, notify.NewResolved(*fb))
	}
	return fb, nil
}

// Delete removes a row.
func (s *FeedbackService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("feedback.id", id)))
	defer span.End()

	err := s.Store.Delete(ctx, strings.ToUpper(strings.TrimSpace(id)))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrFeedbackNotFound
	}
	return err
}

// Stats tallies the store by category, sentiment, status and urgency.
// AvgSentimentScore is nil when the store is empty.
func (s *FeedbackService) Stats(ctx context.Context) (FeedbackStats, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Stats")
	defer span.End()

	items, err := s.Store.All(ctx)
	if err != nil {
		return FeedbackStats{}, err
	}
	return computeStats(items), nil
}

func computeStats(items []domain.Feedback) FeedbackStats {
	st := FeedbackStats{
		Total:       len(items),
		ByCategory:  map[string]int{},
		BySentiment: map[string]int{},
		ByStatus:    map[string]int{},
		ByUrgency:   map[string]int{},
	}
	var sum float64
	for _, fb := range items {
		bump(st.ByCategory, fb.Category)
		bump(st.BySentiment, fb.Sentiment)
		bump(st.ByStatus, fb.Status)
		bump(st.ByUrgency, fb.Urgency)
		sum += fb.SentimentScore
	}
	if len(items) > 0 {
		avg := math.Round(sum/float64(len(items))*1000) / 1000
		st.AvgSentimentScore = &avg
	}
	return st
}

func bump(m map[string]int, k string) {
	if k = strings.TrimSpace(k); k != "" {
		m[k]++
	}
}

// Similar returns up to k rows whose title and text overlap most with the
// row identified by id, excluding that row.
func (s *FeedbackService) Similar(ctx context.Context, id string, k int) ([]search.Result, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Similar",
		trace.WithAttributes(attribute.String("feedback.id", id), attribute.Int("k", k)),
	)
	defer span.End()

	id = strings.ToUpper(strings.TrimSpace(id))
	items, err := s.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Doc, 0, len(items))
	found := false
	for _, fb := range items {
		if fb.ID == id {
			found = true
		}
		docs = append(docs, search.Doc{ID: fb.ID, Text: fb.SearchText()})
	}
	if !found {
		return nil, ErrFeedbackNotFound
	}
	idx := search.NewIndex(docs, search.WithMinRunes(3), search.WithStopwords(textanalysis.StopWords()))
	res := idx.Similar(id, k)
	if res == nil {
		res = []search.Result{}
	}
	return res, nil
}

// emit sends ev in the background; failures are logged, never returned.
func (s *FeedbackService) emit(ev notify.Event, payload any) {
	if s.Notifier == nil || !s.Notifier.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.Notifier.Send(ctx, ev, payload); err != nil {
			log.Error().Err(err).Str("event", string(ev)).Msg("notification failed")
		}
	}()
}

func parsePriority(p string) (string, bool) {
	for _, v := range Priorities {
		if strings.EqualFold(strings.TrimSpace(p), v) {
			return v, true
		}
	}
	return "", false
}
