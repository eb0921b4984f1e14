package datastore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(dsn string, cfg *gorm.Config) (*gormManager, error) {
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := configurePool(db); err != nil {
		return nil, err
	}

	location := "postgres"
	if name := db.Migrator().CurrentDatabase(); name != "" {
		location = "postgres/" + name
	}
	return &gormManager{db: db, driver: "postgres", location: location}, nil
}
