package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending migration.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	return migrateWith(db, log, "up", (*migrate.Migrate).Up)
}

// RollbackMigrations reverts every applied migration.
func RollbackMigrations(db *gorm.DB, log *zap.Logger) error {
	return migrateWith(db, log, "down", (*migrate.Migrate).Down)
}

func migrateWith(db *gorm.DB, log *zap.Logger, direction string, step func(*migrate.Migrate) error) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	switch err := step(m); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("migrations already at target", zap.String("direction", direction))
	case err != nil:
		return fmt.Errorf("migrate %s: %w", direction, err)
	default:
		log.Info("migrations applied", zap.String("direction", direction))
	}
	return nil
}

func newMigrate(db *gorm.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("migrate: nil database")
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("connection pool: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	target, err := postgres.WithInstance(pool, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration target: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "postgres", target)
}
