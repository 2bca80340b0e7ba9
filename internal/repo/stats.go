// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) and for invalidating the analytics
// snapshot cache.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/citizen-feedback/internal/domain"
)

// FeedbackStats returns the total number of feedback rows and the most recent
// change time across them. A row's change time is UpdatedAt when set and its
// Timestamp otherwise. When the table is empty, the result is (0, nil).
func FeedbackStats(ctx context.Context, db *gorm.DB) (count int64, lastChange *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Feedback{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Two ordered single-row reads instead of MAX(), which yields TEXT in SQLite.
	var latest struct{ UpdatedAt time.Time }
	if err = db.WithContext(ctx).Model(&domain.Feedback{}).
		Select("updated_at").
		Order("updated_at DESC").Limit(1).Scan(&latest).Error; err != nil {
		return 0, nil, err
	}
	last := latest.UpdatedAt

	var newest struct{ Timestamp time.Time }
	if err = db.WithContext(ctx).Model(&domain.Feedback{}).
		Select("timestamp").
		Order("timestamp DESC").Limit(1).Scan(&newest).Error; err != nil {
		return 0, nil, err
	}
	if newest.Timestamp.After(last) {
		last = newest.Timestamp
	}
	return count, &last, nil
}
