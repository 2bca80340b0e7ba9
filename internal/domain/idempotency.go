package domain

import "time"

// Idempotency records the outcome of a completed submission, keyed by
// (scope, key). Scope identifies the caller and operation (for example the
// client address plus route) so two clients reusing a key do not collide.
// Replays return the stored resource instead of creating a new one.
type Idempotency struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	Scope      string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_scope_key,priority:1"`
	Key        string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_scope_key,priority:2"`
	ResourceID string    `gorm:"type:varchar(50);not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Expired reports whether the record is no longer replayable at now.
func (i Idempotency) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }
