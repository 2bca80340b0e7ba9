package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/notify"
	"github.com/tbourn/citizen-feedback/internal/repo"
)

var fixedNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *repo.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:feedbacksvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return repo.NewGormStore(db)
}

// recorder is a Notifier capturing events.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	done   chan struct{}
}

func newRecorder() *recorder { return &recorder{done: make(chan struct{}, 16)} }

func (r *recorder) Enabled() bool { return true }

func (r *recorder) Send(_ context.Context, ev notify.Event, _ any) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T, n int) []notify.Event {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func newFeedbackSvc(t *testing.T, n Notifier) (*FeedbackService, *repo.GormStore) {
	t.Helper()
	st := newTestStore(t)
	svc := NewFeedbackService(st, st, n)
	svc.Now = func() time.Time { return fixedNow }
	return svc, st
}

func strp(s string) *string { return &s }

func TestSubmit_EnrichesAndStores(t *testing.T) {
	rec := newRecorder()
	svc, _ := newFeedbackSvc(t, rec)

	fb, err := svc.Submit(context.Background(), SubmitInput{
		Name:  " Ana ",
		Title: "Road issue",
		Text:  "The road near the school has a dangerous pothole. Please fix it urgently.",
		Area:  "Harlem",
	})
	require.NoError(t, err)

	assert.Len(t, fb.ID, 8)
	assert.Equal(t, strings.ToUpper(fb.ID), fb.ID)
	assert.Equal(t, "Ana", fb.Name)
	assert.Equal(t, "Infrastructure", fb.Category)
	assert.Equal(t, "High", fb.Urgency)
	assert.Equal(t, "Feedback", fb.FeedbackType)
	assert.Equal(t, domain.DefaultStatus, fb.Status)
	assert.Equal(t, domain.DefaultPriority, fb.Priority)
	assert.NotEmpty(t, fb.Keywords)
	assert.NotEmpty(t, fb.Summary)
	assert.True(t, fb.Timestamp.Equal(fixedNow))

	stored, err := svc.Get(context.Background(), strings.ToLower(fb.ID))
	require.NoError(t, err)
	assert.Equal(t, fb.Text, stored.Text)

	assert.Equal(t, []notify.Event{notify.EventSubmitted}, rec.wait(t, 1))
}

func TestSubmit_KeepsExplicitCategoryAndNormalizesUrgency(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	fb, err := svc.Submit(context.Background(), SubmitInput{Category: "Parks & Recreation", Urgency: "low", Text: "The park is great and clean"})
	require.NoError(t, err)
	assert.Equal(t, "Parks & Recreation", fb.Category)
	assert.Equal(t, "Low", fb.Urgency)
	assert.Equal(t, "Positive", fb.Sentiment)
}

func TestSubmit_DefaultsUrgencyToMedium(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	fb, err := svc.Submit(context.Background(), SubmitInput{Text: "Library opening hours could be longer"})
	require.NoError(t, err)
	assert.Equal(t, "Medium", fb.Urgency)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidFeedback)

	svc.MaxTextRunes = 10
	_, err = svc.Submit(ctx, SubmitInput{Text: "this is definitely too long"})
	assert.ErrorIs(t, err, ErrTooLong)
	svc.MaxTextRunes = 0

	bad := 91.0
	_, err = svc.Submit(ctx, SubmitInput{Text: "x", Latitude: &bad})
	assert.ErrorIs(t, err, ErrInvalidFeedback)
	badLon := -181.0
	_, err = svc.Submit(ctx, SubmitInput{Text: "x", Longitude: &badLon})
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestSubmit_RetriesOnIDCollision(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ids := []string{"AAAA0001", "AAAA0001", "BBBB0002"}
	svc.NewID = func() string { id := ids[0]; ids = ids[1:]; return id }

	first, err := svc.Submit(context.Background(), SubmitInput{Text: "one"})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), SubmitInput{Text: "two"})
	require.NoError(t, err)
	assert.Equal(t, "AAAA0001", first.ID)
	assert.Equal(t, "BBBB0002", second.ID)
}

func TestSubmit_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	svc.NewID = func() string { return "SAME0000" }
	_, err := svc.Submit(context.Background(), SubmitInput{Text: "one"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), SubmitInput{Text: "two"})
	assert.ErrorIs(t, err, ErrIDExhausted)
}

func TestSubmitIdempotent_ReplaysSameKey(t *testing.T) {
	svc, st := newFeedbackSvc(t, nil)
	ctx := context.Background()
	in := SubmitInput{Text: "Streetlight broken on 5th"}

	a, replayed, err := svc.SubmitIdempotent(ctx, "scope-1", "key-1", in)
	require.NoError(t, err)
	assert.False(t, replayed)

	b, replayed, err := svc.SubmitIdempotent(ctx, "scope-1", "key-1", in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, a.ID, b.ID)

	c, replayed, err := svc.SubmitIdempotent(ctx, "scope-2", "key-1", in)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, a.ID, c.ID)

	_, total, err := st.List(ctx, domain.FeedbackFilter{}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// No key: never replays.
	_, replayed, err = svc.SubmitIdempotent(ctx, "scope-1", "", in)
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	_, err := svc.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
	_, err = svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestListPage_DefaultsAndFilters(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ctx := context.Background()
	for i, txt := range []string{"great park", "terrible road", "awful pothole"} {
		svc.Now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		_, err := svc.Submit(ctx, SubmitInput{Text: txt})
		require.NoError(t, err)
	}

	items, total, err := svc.ListPage(ctx, domain.FeedbackFilter{}, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "awful pothole", items[0].Text)

	items, total, err = svc.ListPage(ctx, domain.FeedbackFilter{Sentiment: "negative"}, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 1)

	items, _, err = svc.ListPage(ctx, domain.FeedbackFilter{Status: "Closed"}, 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestUpdate_NormalizesAndNotifiesOnResolution(t *testing.T) {
	rec := newRecorder()
	svc, _ := newFeedbackSvc(t, rec)
	ctx := context.Background()
	fb, err := svc.Submit(ctx, SubmitInput{Text: "Broken bench"})
	require.NoError(t, err)
	rec.wait(t, 1)

	svc.Now = func() time.Time { return fixedNow.Add(30 * time.Hour) }
	got, err := svc.Update(ctx, fb.ID, domain.FeedbackUpdate{Status: strp("in_progress"), Priority: strp("high")})
	require.NoError(t, err)
	assert.Equal(t, "In Progress", got.Status)
	assert.Equal(t, "High", got.Priority)
	assert.True(t, got.UpdatedAt.Equal(fixedNow.Add(30*time.Hour)))

	_, err = svc.Update(ctx, fb.ID, domain.FeedbackUpdate{Status: strp("resolved"), AdminNotes: strp("replaced")})
	require.NoError(t, err)
	events := rec.wait(t, 1)
	assert.Equal(t, []notify.Event{notify.EventSubmitted, notify.EventResolved}, events)

	// Already closed: no second resolution event.
	_, err = svc.Update(ctx, fb.ID, domain.FeedbackUpdate{Status: strp("Closed")})
	require.NoError(t, err)
	select {
	case <-rec.done:
		t.Fatal("unexpected event for closed -> closed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ctx := context.Background()
	fb, err := svc.Submit(ctx, SubmitInput{Text: "x"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, fb.ID, domain.FeedbackUpdate{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)
	_, err = svc.Update(ctx, fb.ID, domain.FeedbackUpdate{Status: strp("Archived")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.Update(ctx, fb.ID, domain.FeedbackUpdate{Priority: strp("Whenever")})
	assert.ErrorIs(t, err, ErrInvalidPriority)
	_, err = svc.Update(ctx, "MISSING1", domain.FeedbackUpdate{AssignedTo: strp("x")})
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ctx := context.Background()
	fb, err := svc.Submit(ctx, SubmitInput{Text: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, fb.ID))
	assert.ErrorIs(t, svc.Delete(ctx, fb.ID), ErrFeedbackNotFound)
}

func TestStats(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ctx := context.Background()

	empty, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.AvgSentimentScore)

	for _, in := range []SubmitInput{
		{Category: "Roads", Urgency: "High", Text: "terrible broken road"},
		{Category: "Roads", Urgency: "Low", Text: "great new road"},
		{Category: "Parks", Urgency: "Low", Text: "the park"},
	} {
		_, err := svc.Submit(ctx, in)
		require.NoError(t, err)
	}

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, map[string]int{"Roads": 2, "Parks": 1}, st.ByCategory)
	assert.Equal(t, map[string]int{"High": 1, "Low": 2}, st.ByUrgency)
	assert.Equal(t, map[string]int{"New": 3}, st.ByStatus)
	assert.Equal(t, 3, st.BySentiment["Negative"]+st.BySentiment["Positive"]+st.BySentiment["Neutral"])
	require.NotNil(t, st.AvgSentimentScore)
	assert.InDelta(t, 0.5, *st.AvgSentimentScore, 0.001)
}

func TestSimilar(t *testing.T) {
	svc, _ := newFeedbackSvc(t, nil)
	ctx := context.Background()
	ids := []string{"SIM00001", "SIM00002", "SIM00003"}
	svc.NewID = func() string { id := ids[0]; ids = ids[1:]; return id }

	for _, txt := range []string{
		"broken streetlight on main street",
		"streetlight broken near main street corner",
		"library needs more books",
	} {
		_, err := svc.Submit(ctx, SubmitInput{Text: txt})
		require.NoError(t, err)
	}

	res, err := svc.Similar(ctx, "sim00001", 5)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "SIM00002", res[0].ID)
	for _, r := range res {
		assert.NotEqual(t, "SIM00001", r.ID)
	}

	_, err = svc.Similar(ctx, "NOPE", 5)
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestNewTrackingID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTrackingID()
		assert.Len(t, id, 8)
		assert.Equal(t, strings.ToUpper(id), id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 95)
}

type failingStore struct{ FeedbackStore }

func (failingStore) Create(context.Context, *domain.Feedback) error { return errors.New("disk full") }

func TestSubmit_PropagatesStoreErrors(t *testing.T) {
	svc := NewFeedbackService(failingStore{}, nil, nil)
	_, err := svc.Submit(context.Background(), SubmitInput{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
