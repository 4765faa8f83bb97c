// Package report persists an append-only audit trail of migration
// outcomes. The store is optional and strictly write-only for the
// engine: re-runs derive their idempotency from the target system, not
// from this database.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lremane/gitlab-2-forge-migration/internal/config"
)

// Record is one entity outcome of a run
type Record struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index;size:36"`
	Kind      string `gorm:"size:32"` // "user", "org", "repository", ...
	Key       string `gorm:"size:512"`
	Outcome   string `gorm:"size:32"` // "created" or "failed"
	Message   string
	CreatedAt time.Time
}

// Store appends Records to a sqlite or postgres database. A nil *Store
// is a valid no-op reporter.
type Store struct {
	db     *gorm.DB
	runID  string
	logger *slog.Logger
}

// Open creates the report store. It returns (nil, nil) when reporting
// is disabled.
func Open(cfg config.ReportConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported report database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate report schema: %w", err)
	}

	return &Store{
		db:     db,
		runID:  uuid.NewString(),
		logger: log,
	}, nil
}

// RunID identifies this run in the records
func (s *Store) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}

// Record appends one outcome. Persistence failures are logged and
// swallowed: reporting must never fail a migration.
func (s *Store) Record(ctx context.Context, kind, key, outcome, message string) {
	if s == nil {
		return
	}
	rec := Record{
		RunID:   s.runID,
		Kind:    kind,
		Key:     key,
		Outcome: outcome,
		Message: message,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil && s.logger != nil {
		s.logger.Warn(fmt.Sprintf("Failed to persist report record for %s %s: %v", kind, key, err))
	}
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
