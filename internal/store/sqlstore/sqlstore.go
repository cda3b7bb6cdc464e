// Package sqlstore persists the follow-up data model in a relational database
// through gorm. Postgres is the production target; SQLite backs local runs and
// tests.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
	"github.com/rtepass1986/reallifeberlin/internal/store"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

type Options struct {
	Driver   string
	DSN      string
	LogLevel gormlogger.LogLevel
	// Logger receives gorm's query and error logs. Defaults to slog.Default().
	Logger        *slog.Logger
	SlowThreshold time.Duration
}

func Open(opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	s := &Store{now: time.Now}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(opts),
		NowFunc:        func() time.Time { return s.now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	s.db = db

	return s, nil
}

func newLogger(opts Options) gormlogger.Interface {
	level := opts.LogLevel
	if level == 0 {
		level = gormlogger.Warn
	}
	slow := opts.SlowThreshold
	if slow == 0 {
		slow = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return gormlogger.NewSlogLogger(logger.With("component", "gorm"), gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates or updates the tables for every record type.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&userRecord{},
		&leaderRecord{},
		&contactRecord{},
		&workflowRecord{},
		&taskRecord{},
		&missionPointRecord{},
		&kpiRecord{},
		&kpiValueRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	var stats domain.Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&contactRecord{}).Count(&stats.TotalContacts).Error; err != nil {
		return domain.Stats{}, fmt.Errorf("count contacts: %w", err)
	}
	if err := db.Model(&workflowRecord{}).Where("completed = ?", false).Count(&stats.ActiveWorkflows).Error; err != nil {
		return domain.Stats{}, fmt.Errorf("count workflows: %w", err)
	}
	if err := db.Model(&taskRecord{}).Where("status = ?", string(domain.StatusPending)).Count(&stats.PendingTasks).Error; err != nil {
		return domain.Stats{}, fmt.Errorf("count pending tasks: %w", err)
	}
	err := db.Model(&taskRecord{}).
		Where("status = ? AND due_date <= ?", string(domain.StatusPending), now.UTC()).
		Count(&stats.OverdueTasks).Error
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count overdue tasks: %w", err)
	}

	return stats, nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrAlreadyExists
	default:
		return err
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
