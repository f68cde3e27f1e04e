// Package postgres implements repository.Gateway with gorm on PostgreSQL.
// It is selected with database.driver=postgres for deployments that run
// several server replicas against one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ repository.Gateway = (*DB)(nil)

type DB struct {
	gorm *gorm.DB
}

// New connects to dsn and migrates the schema.
func New(dsn string, log *slog.Logger) (*DB, error) {
	g, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	db := &DB{gorm: g}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	log.Info("postgres gateway ready")
	return db, nil
}

func (db *DB) migrate() error {
	if err := db.gorm.AutoMigrate(&userRow{}, &oauthAccountRow{}, &courseRow{}, &reviewRow{}); err != nil {
		return err
	}

	// Case-insensitive email uniqueness is an expression index, which gorm
	// tags cannot describe. Courses use the name_key column instead.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email))`,
	} {
		if err := db.gorm.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// expectOneRow turns "0 rows affected" into NotFound.
func expectOneRow(tx *gorm.DB, resource string, id int64) error {
	if tx.Error != nil {
		return fmt.Errorf("postgres: writing %s %d: %w", resource, id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func notFoundOr(err error, resource string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, key)
	}
	return fmt.Errorf("postgres: reading %s %v: %w", resource, key, err)
}
