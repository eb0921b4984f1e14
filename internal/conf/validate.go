package conf

import (
	"fmt"
	"strings"

	"github.com/quicktest-hq/quicktest/internal/errors"
)

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks cross-field constraints that defaults cannot guarantee.
func ValidateSettings(settings *Settings) error {
	var ve ValidationError

	switch settings.Database.Driver {
	case DriverSQLite:
		if settings.Database.Path == "" {
			ve.Errors = append(ve.Errors, "database.path is required for sqlite")
		}
	case DriverMySQL, DriverPostgres:
		if settings.Database.DSN == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("database.dsn is required for %s", settings.Database.Driver))
		}
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf("unsupported database.driver %q", settings.Database.Driver))
	}

	if settings.Client.Timeout <= 0 {
		ve.Errors = append(ve.Errors, "client.timeout must be positive")
	}
	if settings.Client.SubmitTimeout <= 0 {
		ve.Errors = append(ve.Errors, "client.submittimeout must be positive")
	}
	if settings.Client.ScrollDelay < 0 {
		ve.Errors = append(ve.Errors, "client.scrolldelay must not be negative")
	}
	if settings.Client.StateTTL < 0 {
		ve.Errors = append(ve.Errors, "client.statettl must not be negative")
	}

	if settings.MQTT.Enabled && (settings.MQTT.Broker == "" || settings.MQTT.Topic == "") {
		ve.Errors = append(ve.Errors, "mqtt.broker and mqtt.topic are required when mqtt is enabled")
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryConfiguration).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}
