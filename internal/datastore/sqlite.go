package datastore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(path string, cfg *gorm.Config) (*gormManager, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Immediate transactions take the writer lock up front so concurrent feedback
	// writes wait on busy_timeout instead of failing on lock upgrade.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_txlock=immediate", path)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &gormManager{db: db, driver: "sqlite", location: path}, nil
}
