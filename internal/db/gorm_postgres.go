package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormPostgres opens PostgreSQL through GORM. The GORM store manages its
// own schema with AutoMigrate, so point it at a database the pgx migrations
// do not own.
func NewGormPostgres(dsn string, quiet bool) (*gorm.DB, error) {
	level := logger.Warn
	if quiet {
		level = logger.Silent
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gorm.Open(postgres): %w", err)
	}
	return gdb, nil
}
