// Package repo is the SQL backend for citizen feedback: GORM over SQLite for
// single-node installs and PostgreSQL for shared deployments. This file opens
// and tunes the connection and migrates the schema.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/citizen-feedback/internal/domain"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrUnsupportedDriver is returned by Open for unknown driver names.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	// ErrEmptyDSN is returned when postgres is selected without a DATABASE_URL.
	ErrEmptyDSN = errors.New("postgres: empty DATABASE_URL")
)

// pool holds database/sql pool limits per driver.
type pool struct {
	maxOpen, maxIdle int
	idleTime, life   time.Duration
}

var (
	// SQLite serialises writers anyway; a small pool avoids busy retries.
	sqlitePool   = pool{maxOpen: 10, maxIdle: 10, idleTime: 5 * time.Minute, life: 30 * time.Minute}
	postgresPool = pool{maxOpen: 20, maxIdle: 10, idleTime: 5 * time.Minute, life: 30 * time.Minute}

	sqlitePragmas = []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
)

func (p pool) apply(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxIdleTime(p.idleTime)
	sqlDB.SetConnMaxLifetime(p.life)
}

// Open connects to driver ("" means sqlite), installs the OpenTelemetry
// tracing plugin so every feedback query becomes a span, and returns the
// handle. target is a file path for sqlite and a DSN for postgres.
func Open(driver, target string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case DriverSQLite, "":
		db, err = OpenSQLite(target)
	case DriverPostgres:
		db, err = OpenPostgres(target)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("gorm tracing: %w", err)
	}
	return db, nil
}

// OpenSQLite opens or creates the database file. The parent directory must
// exist; the driver reports a missing one with an unhelpful message.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", strings.TrimSuffix(p, ";"), err)
		}
	}
	sqlitePool.apply(db)
	return db, nil
}

// OpenPostgres connects through the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	postgresPool.apply(db)
	return db, nil
}

// AutoMigrate creates or updates the feedback and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Feedback{}, &domain.Idempotency{})
}
