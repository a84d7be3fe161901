package stats

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Status string

const (
	StatusSuccess  Status = "success"
	StatusTooLarge Status = "too_large"
	StatusFailed   Status = "failed"
	StatusTimeout  Status = "timeout"
)

// Job is one finished resolution, successful or not. No media is stored.
type Job struct {
	ID int64 `gorm:"column:id;primaryKey"`
	// Unix milliseconds.
	Timestamp  int64  `gorm:"column:ts"`
	URL        string `gorm:"column:url"`
	ChatID     int64  `gorm:"column:chat_id"`
	Mode       string `gorm:"column:mode"`
	Status     Status `gorm:"column:status"`
	Bytes      int64  `gorm:"column:bytes"`
	DurationMs int64  `gorm:"column:duration_ms"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) Time() time.Time {
	return time.UnixMilli(j.Timestamp)
}

func (j *Job) Duration() time.Duration {
	return time.Duration(j.DurationMs) * time.Millisecond
}

// Summary is a snapshot of activity.
type Summary struct {
	Daily       int64
	Weekly      int64
	Monthly     int64
	Total       int64
	Bytes       int64
	AvgDuration time.Duration
}

type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

// Open opens (creating if necessary) the sqlite database at path and brings its schema up to date.
func Open(path string) (*Store, error) {
	logger := zapgorm2.New(zap.L().Named("gorm"))
	logger.IgnoreRecordNotFoundError = true
	logger.LogLevel = gormlogger.Warn
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger})
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:  db,
		log: zap.S().Named("stats"),
		now: time.Now,
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Migrate() error {
	s.log.Info("running database migrations")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch {
	case err == nil:
		s.log.Info("database migration complete")
	case errors.Is(err, migrate.ErrNoChange):
		s.log.Info("no database migration required")
	default:
		return err
	}
	return nil
}

func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Record inserts a job, setting its ID. A zero Timestamp is set to the current time.
func (s *Store) Record(ctx context.Context, job *Job) error {
	if job.Timestamp == 0 {
		job.Timestamp = s.now().UnixMilli()
	}
	return s.db.WithContext(ctx).Create(job).Error
}

// AverageDuration is the mean duration of successful jobs since the given time, or zero if there were none.
func (s *Store) AverageDuration(ctx context.Context, since time.Time) (time.Duration, error) {
	var avg sql.NullFloat64
	row := s.db.WithContext(ctx).
		Model(&Job{}).
		Select("AVG(duration_ms)").
		Where("status = ? AND ts > ? AND duration_ms > 0", StatusSuccess, since.UnixMilli()).
		Row()
	if err := row.Scan(&avg); err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return time.Duration(avg.Float64 * float64(time.Millisecond)).Round(time.Millisecond), nil
}

// Summary counts jobs over the last day, week (7 days) and month (30 days) before now, and overall.
func (s *Store) Summary(ctx context.Context, now time.Time) (Summary, error) {
	day := now.Add(-24 * time.Hour).UnixMilli()
	week := now.Add(-7 * 24 * time.Hour).UnixMilli()
	month := now.Add(-30 * 24 * time.Hour).UnixMilli()

	var summary Summary
	var avg float64
	row := s.db.WithContext(ctx).
		Model(&Job{}).
		Select(`COALESCE(SUM(CASE WHEN ts >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ts >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ts >= ? THEN 1 ELSE 0 END), 0),
			COUNT(*),
			COALESCE(SUM(bytes), 0),
			COALESCE(AVG(duration_ms), 0)`, day, week, month).
		Row()
	err := row.Scan(&summary.Daily, &summary.Weekly, &summary.Monthly, &summary.Total, &summary.Bytes, &avg)
	if err != nil {
		return Summary{}, err
	}
	summary.AvgDuration = time.Duration(avg * float64(time.Millisecond)).Round(time.Millisecond)
	return summary, nil
}
