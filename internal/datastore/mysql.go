package datastore

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(dsn string, cfg *gorm.Config) (*gormManager, error) {
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	// Feedback ordering depends on CreatedAt round-tripping as time.Time.
	parsed.ParseTime = true

	db, err := gorm.Open(mysql.Open(parsed.FormatDSN()), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}
	if err := configurePool(db); err != nil {
		return nil, err
	}

	return &gormManager{
		db:       db,
		driver:   "mysql",
		location: fmt.Sprintf("%s/%s", parsed.Addr, parsed.DBName),
	}, nil
}
