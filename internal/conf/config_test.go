package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktest-hq/quicktest/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	resetViper(t)
	path := writeConfig(t, "server:\n  listen: \":9090\"\n")

	settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", settings.Server.Listen)
	assert.Equal(t, DriverSQLite, settings.Database.Driver)
	assert.Equal(t, 100*time.Millisecond, settings.Client.ScrollDelay)
	assert.Equal(t, 15*time.Second, settings.Client.SubmitTimeout)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	assert.Same(t, settings, Setting())
}

func TestLoadFileParsesClientSection(t *testing.T) {
	resetViper(t)
	path := writeConfig(t, `
client:
  baseurl: http://qa.internal:8080/api/v2
  testerid: 7
  timeout: 5s
  strict: true
mqtt:
  enabled: true
  broker: tcp://broker:1883
  topic: qa/feedback
`)

	settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://qa.internal:8080/api/v2", settings.Client.BaseURL)
	assert.Equal(t, uint(7), settings.Client.TesterID)
	assert.Equal(t, 5*time.Second, settings.Client.Timeout)
	assert.True(t, settings.Client.Strict)
	assert.True(t, settings.MQTT.Enabled)
	assert.Equal(t, "qa/feedback", settings.MQTT.Topic)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	resetViper(t)
	t.Setenv("QUICKTEST_TESTER_ID", "42")
	t.Setenv("QUICKTEST_DB_DRIVER", DriverPostgres)
	t.Setenv("QUICKTEST_DB_DSN", "host=localhost user=qa dbname=qa")
	path := writeConfig(t, "client:\n  testerid: 7\n")

	settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, uint(42), settings.Client.TesterID)
	assert.Equal(t, DriverPostgres, settings.Database.Driver)
}

func TestStateFilePath(t *testing.T) {
	resetViper(t)
	explicit := filepath.Join(t.TempDir(), "state.json")
	t.Setenv("QUICKTEST_STATE_FILE", explicit)

	settings, err := LoadFile(writeConfig(t, ""))
	require.NoError(t, err)
	path, err := settings.Client.StateFilePath()
	require.NoError(t, err)
	assert.Equal(t, explicit, path)

	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Setenv("HOME", cache)
	path, err = (&ClientSettings{}).StateFilePath()
	require.NoError(t, err)
	assert.Equal(t, "ui-state.json", filepath.Base(path))
	assert.Equal(t, "quicktest", filepath.Base(filepath.Dir(path)))
}

func TestInvalidEnvironmentValueIsReported(t *testing.T) {
	resetViper(t)
	t.Setenv("QUICKTEST_STRICT", "perhaps")

	_, err := LoadFile(writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUICKTEST_STRICT")
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			Database: DatabaseSettings{Driver: DriverSQLite, Path: "qa.db"},
			Client:   ClientSettings{Timeout: time.Second, SubmitTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"unknown driver", func(s *Settings) { s.Database.Driver = "oracle" }, "unsupported database.driver"},
		{"mysql without dsn", func(s *Settings) { s.Database.Driver = DriverMySQL }, "database.dsn is required"},
		{"zero timeout", func(s *Settings) { s.Client.Timeout = 0 }, "client.timeout"},
		{"mqtt without topic", func(s *Settings) { s.MQTT = MQTTSettings{Enabled: true, Broker: "tcp://x:1883"} }, "mqtt.broker and mqtt.topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}
