// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file exposes the free functions as a value satisfying
// the services' store interface, so the SQL and JSON backends are
// interchangeable.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/citizen-feedback/internal/domain"
)

// GormStore is a thin adapter over the package functions.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

func (s *GormStore) Create(ctx context.Context, fb *domain.Feedback) error {
	return CreateFeedback(ctx, s.DB, fb)
}

func (s *GormStore) Get(ctx context.Context, id string) (*domain.Feedback, error) {
	fb, err := GetFeedback(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return fb, err
}

func (s *GormStore) List(ctx context.Context, f domain.FeedbackFilter, offset, limit int) ([]domain.Feedback, int64, error) {
	total, err := CountFeedback(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	items, err := ListFeedbackPage(ctx, s.DB, f, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *GormStore) All(ctx context.Context) ([]domain.Feedback, error) {
	return ListAllFeedback(ctx, s.DB)
}

func (s *GormStore) Update(ctx context.Context, id string, upd domain.FeedbackUpdate, now time.Time) (*domain.Feedback, error) {
	fb, err := UpdateFeedback(ctx, s.DB, id, upd, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return fb, err
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return DeleteFeedback(ctx, s.DB, id)
}

func (s *GormStore) Stats(ctx context.Context) (int64, *time.Time, error) {
	return FeedbackStats(ctx, s.DB)
}

func (s *GormStore) GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, scope, key, now)
}

func (s *GormStore) CreateIdempotency(ctx context.Context, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	return CreateIdempotency(ctx, s.DB, scope, key, resourceID, status, now, ttl)
}

func (s *GormStore) PurgeIdempotency(ctx context.Context, now time.Time) (int64, error) {
	return PurgeExpiredIdempotency(ctx, s.DB, now)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
