package database

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/lcsmdq/MyPlan/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
	slowQuery       = 200 * time.Millisecond
)

// Open connects to postgres and sizes the pool. The session time zone is
// forced to UTC unless the URL names one.
func Open(databaseURL string, log *zap.Logger) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	dsn, err := withUTC(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), Config(log))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("connection pool: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// Config is the gorm configuration shared by postgres and the SQLite test
// database. SQL warnings and errors go to log; a missing row is not one.
func Config(log *zap.Logger) *gorm.Config {
	if log == nil {
		log = zap.NewNop()
	}
	// NewStdLogAt only fails for levels zap does not know.
	std, _ := zap.NewStdLogAt(log.Named("gorm"), zapcore.WarnLevel)

	return &gorm.Config{
		Logger: logger.New(std, logger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the pool. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("connection pool: %w", err)
	}
	return pool.Close()
}

// AutoMigrate creates or updates the tables from the models and rebuilds the
// events_with_location view. Production schemas are managed by RunMigrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.Event{},
		&models.Mark{},
		&models.Favorite{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return CreateViews(db)
}

const eventsWithLocationView = `CREATE VIEW events_with_location AS
SELECT e.id, e.title, e.description, e.location_id, l.name AS location_name,
       e.start_time, e.end_time, e.is_recurring, e.recurrence_rule, e.status,
       e.created_by, e.created_at, e.edited_at
FROM events e
LEFT JOIN locations l ON l.id = e.location_id`

// CreateViews (re)creates the read views over the base tables.
func CreateViews(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DROP VIEW IF EXISTS events_with_location").Error; err != nil {
			return fmt.Errorf("drop events_with_location: %w", err)
		}
		if err := tx.Exec(eventsWithLocationView).Error; err != nil {
			return fmt.Errorf("create events_with_location: %w", err)
		}
		return nil
	})
}

func withUTC(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	if q := u.Query(); !q.Has("TimeZone") {
		q.Set("TimeZone", "UTC")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
