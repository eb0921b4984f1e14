// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "QUICKTEST_DEBUG", validateEnvBool},

		{"server.listen", "QUICKTEST_LISTEN", nil},

		{"database.driver", "QUICKTEST_DB_DRIVER", validateEnvDriver},
		{"database.path", "QUICKTEST_DB_PATH", nil},
		{"database.dsn", "QUICKTEST_DB_DSN", nil},

		{"client.baseurl", "QUICKTEST_BASE_URL", validateEnvURL},
		{"client.testerid", "QUICKTEST_TESTER_ID", validateEnvUint},
		{"client.timeout", "QUICKTEST_TIMEOUT", validateEnvDuration},
		{"client.strict", "QUICKTEST_STRICT", validateEnvBool},
		{"client.statefile", "QUICKTEST_STATE_FILE", nil},

		{"mqtt.enabled", "QUICKTEST_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "QUICKTEST_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "QUICKTEST_MQTT_USERNAME", nil},
		{"mqtt.password", "QUICKTEST_MQTT_PASSWORD", nil},

		{"telemetry.sentrydsn", "QUICKTEST_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds environment variables and validates any that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(value)
	return err
}

func validateEnvUint(value string) error {
	_, err := strconv.ParseUint(value, 10, 64)
	return err
}

func validateEnvDuration(value string) error {
	_, err := time.ParseDuration(value)
	return err
}

func validateEnvDriver(value string) error {
	switch value {
	case DriverSQLite, DriverMySQL, DriverPostgres:
		return nil
	}
	return fmt.Errorf("must be one of %s, %s, %s", DriverSQLite, DriverMySQL, DriverPostgres)
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scheme and host are required")
	}
	return nil
}
