// Package datastore opens the feedback record store and runs schema migrations.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
)

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or updates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host info otherwise).
	Path() string
	// Driver returns the configured driver name.
	Driver() string
	// Close closes the database connection.
	Close() error
}

// Pool limits applied to networked databases.
const (
	maxIdleConns    = 10
	maxOpenConns    = 100
	connMaxLifetime = time.Hour
)

type gormManager struct {
	db       *gorm.DB
	driver   string
	location string
}

// NewManager opens the database selected by settings.Driver.
func NewManager(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	gormCfg := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), settings.SlowQuery),
	}

	var (
		m   *gormManager
		err error
	)
	switch settings.Driver {
	case conf.DriverSQLite, "":
		m, err = openSQLite(settings.Path, gormCfg)
	case conf.DriverMySQL:
		m, err = openMySQL(settings.DSN, gormCfg)
	case conf.DriverPostgres:
		m, err = openPostgres(settings.DSN, gormCfg)
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("driver", settings.Driver).
			Build()
	}

	log.Info("database opened",
		logger.String("driver", m.driver),
		logger.String("location", m.location))
	return m, nil
}

// Initialize runs AutoMigrate for every entity.
func (m *gormManager) Initialize() error {
	if err := m.db.AutoMigrate(entities.All()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("driver", m.driver).
			Build()
	}
	return nil
}

func (m *gormManager) DB() *gorm.DB {
	return m.db
}

func (m *gormManager) Path() string {
	return m.location
}

func (m *gormManager) Driver() string {
	return m.driver
}

// Close closes the database connection.
func (m *gormManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
