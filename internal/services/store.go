package services

import (
	"context"
	"time"

	"github.com/tbourn/citizen-feedback/internal/domain"
	"github.com/tbourn/citizen-feedback/internal/notify"
)

// FeedbackStore is the persistence contract shared by the SQL and JSON
// backends. Missing rows are reported as repo.ErrNotFound and tracking ID
// collisions as repo.ErrDuplicate.
type FeedbackStore interface {
	Create(ctx context.Context, fb *domain.Feedback) error
	Get(ctx context.Context, id string) (*domain.Feedback, error)
	// List returns one page of rows matching f, newest first, plus the total.
	List(ctx context.Context, f domain.FeedbackFilter, offset, limit int) ([]domain.Feedback, int64, error)
	// All returns every row, oldest first.
	All(ctx context.Context) ([]domain.Feedback, error)
	Update(ctx context.Context, id string, upd domain.FeedbackUpdate, now time.Time) (*domain.Feedback, error)
	Delete(ctx context.Context, id string) error
	// Stats returns the row count and latest change time for cache validators.
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// IdempotencyStore records completed submissions for safe client retries.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error)
	PurgeIdempotency(ctx context.Context, now time.Time) (int64, error)
}

// Store is what both backends implement.
type Store interface {
	FeedbackStore
	IdempotencyStore
	Close() error
}

// Notifier delivers lifecycle events; notify.Webhook satisfies it.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, ev notify.Event, payload any) error
}
