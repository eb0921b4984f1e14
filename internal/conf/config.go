// config.go: settings struct and loading for the quicktest service and client.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/quicktest-hq/quicktest/internal/logger"
)

// Database drivers supported by the datastore.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// ServerSettings configures the REST server.
type ServerSettings struct {
	Listen    string // address the echo server binds to
	BodyLimit string // request body limit, echo notation ("1M")
	CORS      []string
}

// DatabaseSettings configures the feedback record store.
type DatabaseSettings struct {
	Driver    string        // sqlite, mysql or postgres
	Path      string        // sqlite database file
	DSN       string        // mysql/postgres connection string
	SlowQuery time.Duration // statements slower than this are logged at warn
}

// ClientSettings configures the quick test client core.
type ClientSettings struct {
	BaseURL       string        // REST collaborator base url, e.g. http://localhost:8080/api/v2
	TesterID      uint          // identity sent with every request
	Timeout       time.Duration // default request timeout
	SubmitTimeout time.Duration // upper bound for one feedback submission
	Strict        bool          // treat malformed dashboard responses as errors
	ScrollDelay   time.Duration // delay before restoring scroll position
	StateTTL      time.Duration // lifetime of persisted UI state
	StateFile     string        // UI state file shared by CLI runs; empty uses the user cache dir
}

// StateFilePath returns where CLI commands keep UI state between runs.
func (c *ClientSettings) StateFilePath() (string, error) {
	if c.StateFile != "" {
		return c.StateFile, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no user cache directory for ui state: %w", err)
	}
	return filepath.Join(dir, "quicktest", "ui-state.json"), nil
}

// MQTTSettings configures feedback change notifications.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// TelemetrySettings configures metrics and error reporting.
type TelemetrySettings struct {
	Metrics   bool   // expose /metrics
	SentryDSN string // empty disables error reporting
}

// Settings is the root configuration
type Settings struct {
	Debug bool // development mode

	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`

	Server    ServerSettings
	Database  DatabaseSettings
	Client    ClientSettings
	MQTT      MQTTSettings
	Telemetry TelemetrySettings
	Logging   logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml from the default search paths, applies environment
// overrides and validates the result.
func Load() (*Settings, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, err
	}
	return load(func(v *viper.Viper) {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	})
}

// LoadFile reads settings from an explicit file.
func LoadFile(path string) (*Settings, error) {
	return load(func(v *viper.Viper) {
		v.SetConfigFile(path)
	})
}

func load(configure func(v *viper.Viper)) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.GetViper()
	configure(v)
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("fatal error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// Setting returns the last loaded settings, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "quicktest"),
		"/etc/quicktest",
	}, nil
}
