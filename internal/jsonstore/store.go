// Package jsonstore is the file-backed fallback for the feedback store. All
// rows live in a single JSON array (DATA_DIR/feedback.json) that is loaded
// once, held in memory and rewritten atomically (temp file + rename) after
// every mutation.
//
// Idempotency records are kept in memory only; they do not survive a
// restart, which matches their short TTL.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/repo"
)

// FileName is the data file created inside the data directory.
const FileName = "feedback.json"

// Store implements the services' FeedbackStore over a JSON file.
type Store struct {
	path string

	mu    sync.RWMutex
	items []domain.Feedback
	idem  map[string]domain.Idempotency
}

// Open loads dir/feedback.json, creating dir when missing. A missing file is
// an empty store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonstore: create data dir: %w", err)
	}
	s := &Store{
		path: filepath.Join(dir, FileName),
		idem: make(map[string]domain.Idempotency),
	}
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("jsonstore: read: %w", err)
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &s.items); err != nil {
			return nil, fmt.Errorf("jsonstore: decode %s: %w", s.path, err)
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// persist writes the current rows. Caller holds mu.
func (s *Store) persist() error {
	b, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".feedback-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Create(_ context.Context, fb *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(fb.ID) >= 0 {
		return repo.ErrDuplicate
	}
	row := *fb
	if row.Status == "" {
		row.Status = domain.DefaultStatus
	}
	if row.Priority == "" {
		row.Priority = domain.DefaultPriority
	}
	s.items = append(s.items, row)
	if err := s.persist(); err != nil {
		s.items = s.items[:len(s.items)-1]
		return fmt.Errorf("jsonstore: write: %w", err)
	}
	*fb = row
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, repo.ErrNotFound
	}
	fb := s.items[i]
	return &fb, nil
}

// List filters in memory and orders newest first, matching the SQL store.
func (s *Store) List(_ context.Context, f domain.FeedbackFilter, offset, limit int) ([]domain.Feedback, int64, error) {
	s.mu.RLock()
	matched := make([]domain.Feedback, 0, len(s.items))
	for _, fb := range s.items {
		if f.Matches(fb) {
			matched = append(matched, fb)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID < matched[j].ID
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return []domain.Feedback{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// All returns a copy of every row, oldest first.
func (s *Store) All(_ context.Context) ([]domain.Feedback, error) {
	s.mu.RLock()
	out := make([]domain.Feedback, len(s.items))
	copy(out, s.items)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, id string, upd domain.FeedbackUpdate, now time.Time) (*domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, repo.ErrNotFound
	}
	prev := s.items[i]
	next := prev
	upd.Apply(&next)
	next.UpdatedAt = now
	s.items[i] = next
	if err := s.persist(); err != nil {
		s.items[i] = prev
		return nil, fmt.Errorf("jsonstore: write: %w", err)
	}
	return &next, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return repo.ErrNotFound
	}
	prev := s.items
	s.items = append(append([]domain.Feedback{}, prev[:i]...), prev[i+1:]...)
	if err := s.persist(); err != nil {
		s.items = prev
		return fmt.Errorf("jsonstore: write: %w", err)
	}
	return nil
}

// Stats mirrors repo.FeedbackStats.
func (s *Store) Stats(_ context.Context) (int64, *time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return 0, nil, nil
	}
	var last time.Time
	for _, fb := range s.items {
		if fb.UpdatedAt.After(last) {
			last = fb.UpdatedAt
		}
		if fb.Timestamp.After(last) {
			last = fb.Timestamp
		}
	}
	return int64(len(s.items)), &last, nil
}

func idemKey(scope, key string) string { return scope + "\x00" + key }

func (s *Store) GetIdempotency(_ context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.idem[idemKey(scope, key)]
	if !ok || rec.Expired(now) {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) CreateIdempotency(_ context.Context, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idemKey(scope, key)
	if rec, ok := s.idem[k]; ok && !rec.Expired(now) {
		return nil, repo.ErrDuplicate
	}
	rec := domain.Idempotency{
		ID:         uuid.NewString(),
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	s.idem[k] = rec
	return &rec, nil
}

func (s *Store) PurgeIdempotency(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.idem {
		if rec.Expired(now) {
			delete(s.idem, k)
			n++
		}
	}
	return n, nil
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }
