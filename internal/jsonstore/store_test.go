package jsonstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/repo"
)

var t0 = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	rows := []domain.Feedback{
		{ID: "J1", Timestamp: t0, Category: "Roads", Status: "New", Title: "Pothole", Text: "deep hole"},
		{ID: "J2", Timestamp: t0.Add(time.Hour), Category: "Parks", Status: "Resolved", Title: "Bench", Text: "lovely"},
		{ID: "J3", Timestamp: t0.Add(2 * time.Hour), Category: "roads", Status: "New", Title: "Light", Text: "pothole nearby"},
	}
	for i := range rows {
		require.NoError(t, s.Create(ctx, &rows[i]))
	}
}

func TestOpen_CreatesDirAndEmptyStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := Open(dir)
	require.NoError(t, err)

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, filepath.Join(dir, FileName), s.Path())
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644))
	_, err := Open(dir)
	assert.Error(t, err)
}

func TestCreate_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	seed(t, s)

	reopened, err := Open(dir)
	require.NoError(t, err)
	fb, err := reopened.Get(context.Background(), "J2")
	require.NoError(t, err)
	assert.Equal(t, "Bench", fb.Title)
	assert.Equal(t, domain.DefaultPriority, fb.Priority)
	assert.True(t, fb.Timestamp.Equal(t0.Add(time.Hour)))

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestCreate_Duplicate(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	seed(t, s)
	err = s.Create(context.Background(), &domain.Feedback{ID: "J1", Timestamp: t0})
	assert.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestList_FiltersOrdersPaginates(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	seed(t, s)
	ctx := context.Background()

	items, total, err := s.List(ctx, domain.FeedbackFilter{}, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "J3", items[0].ID)
	assert.Equal(t, "J2", items[1].ID)

	items, total, err = s.List(ctx, domain.FeedbackFilter{Category: "ROADS", Query: "pothole"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = s.List(ctx, domain.FeedbackFilter{}, 10, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Empty(t, items)
}

func TestUpdateDeleteStats(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	seed(t, s)
	ctx := context.Background()
	later := t0.Add(48 * time.Hour)

	fb, err := s.Update(ctx, "J1", domain.FeedbackUpdate{Status: strp("Closed"), AdminNotes: strp("done")}, later)
	require.NoError(t, err)
	assert.Equal(t, "Closed", fb.Status)
	assert.Equal(t, "done", fb.AdminNotes)
	assert.True(t, fb.UpdatedAt.Equal(later))

	_, err = s.Update(ctx, "nope", domain.FeedbackUpdate{}, later)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	n, last, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NotNil(t, last)
	assert.True(t, last.Equal(later))

	require.NoError(t, s.Delete(ctx, "J2"))
	assert.ErrorIs(t, s.Delete(ctx, "J2"), repo.ErrNotFound)
	_, err = s.Get(ctx, "J2")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "J1", all[0].ID)
}

func TestStats_Empty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	n, last, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, last)
}

func TestIdempotency_InMemory(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.GetIdempotency(ctx, "scope", "k", t0)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = s.CreateIdempotency(ctx, "scope", "k", "J1", 201, t0, time.Hour)
	require.NoError(t, err)
	_, err = s.CreateIdempotency(ctx, "scope", "k", "J9", 201, t0, time.Hour)
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	rec, err := s.GetIdempotency(ctx, "scope", "k", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "J1", rec.ResourceID)

	_, err = s.GetIdempotency(ctx, "scope", "k", t0.Add(time.Hour))
	assert.ErrorIs(t, err, repo.ErrNotFound)

	n, err := s.PurgeIdempotency(ctx, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConcurrentCreates(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Create(ctx, &domain.Feedback{ID: fmt.Sprintf("C%02d", i), Timestamp: t0.Add(time.Duration(i) * time.Second)})
		}(i)
	}
	wg.Wait()

	reopened, err := Open(dir)
	require.NoError(t, err)
	all, err := reopened.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
