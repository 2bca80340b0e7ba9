// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feedback
// model.
//
// The repository follows a "thin" approach: it performs persistence and
// simple query composition, leaving business rules (ID generation, text
// analysis, status validation) to the services package.
//
// Error semantics:
//   - A missing row is reported as ErrNotFound.
//   - A primary key collision on create is reported as ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/citizen-feedback/internal/domain"
)

// CreateFeedback inserts a fully populated feedback row.
func CreateFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) error {
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetFeedback fetches a single row by its tracking ID.
func GetFeedback(ctx context.Context, db *gorm.DB, id string) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := db.WithContext(ctx).Where("id = ?", id).First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// applyFilter composes the WHERE clause for a listing.
func applyFilter(q *gorm.DB, f domain.FeedbackFilter) *gorm.DB {
	eq := func(col, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q = q.Where("LOWER("+col+") = ?", strings.ToLower(v))
		}
	}
	eq("status", f.Status)
	eq("category", f.Category)
	eq("urgency", f.Urgency)
	eq("sentiment", f.Sentiment)
	if s := strings.ToLower(strings.TrimSpace(f.Query)); s != "" {
		like := "%" + escapeLike(s) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(feedback) LIKE ? ESCAPE '\\')", like, like)
	}
	return q
}

// CountFeedback returns the number of rows matching f.
func CountFeedback(ctx context.Context, db *gorm.DB, f domain.FeedbackFilter) (int64, error) {
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.Feedback{}), f).Count(&total).Error
	return total, err
}

// ListFeedbackPage returns a page of rows matching f, newest first. Use
// CountFeedback for pagination metadata.
func ListFeedbackPage(ctx context.Context, db *gorm.DB, f domain.FeedbackFilter, offset, limit int) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := applyFilter(db.WithContext(ctx).Model(&domain.Feedback{}), f).
		Order("timestamp desc").
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListAllFeedback returns every row ordered by creation time. It is the
// snapshot fed to the analytics engine.
func ListAllFeedback(ctx context.Context, db *gorm.DB) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).Order("timestamp asc").Order("id asc").Find(&out).Error
	return out, err
}

// UpdateFeedback applies upd to the row identified by id, stamps UpdatedAt
// with now and returns the stored result. Returns ErrNotFound when the row is
// missing.
func UpdateFeedback(ctx context.Context, db *gorm.DB, id string, upd domain.FeedbackUpdate, now time.Time) (*domain.Feedback, error) {
	var out *domain.Feedback
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fb domain.Feedback
		if err := tx.Where("id = ?", id).First(&fb).Error; err != nil {
			return err
		}
		upd.Apply(&fb)
		fb.UpdatedAt = now
		if err := tx.Model(&domain.Feedback{}).Where("id = ?", id).Updates(map[string]any{
			"status":      fb.Status,
			"assigned_to": fb.AssignedTo,
			"admin_notes": fb.AdminNotes,
			"priority":    fb.Priority,
			"updated_at":  fb.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = &fb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFeedback removes a row. Returns ErrNotFound when nothing was deleted.
func DeleteFeedback(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Feedback{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// isUniqueViolation detects duplicate-key errors across drivers. glebarez/sqlite
// often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
