// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.bodylimit", "1M")
	v.SetDefault("server.cors", []string{"*"})

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/quicktest.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.slowquery", 200*time.Millisecond)

	v.SetDefault("client.baseurl", "http://localhost:8080/api/v2")
	v.SetDefault("client.testerid", 0)
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.submittimeout", 15*time.Second)
	v.SetDefault("client.strict", false)
	v.SetDefault("client.scrolldelay", 100*time.Millisecond)
	v.SetDefault("client.statettl", 12*time.Hour)
	v.SetDefault("client.statefile", "")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "quicktest")
	v.SetDefault("mqtt.topic", "quicktest/feedback")

	v.SetDefault("telemetry.metrics", true)
	v.SetDefault("telemetry.sentrydsn", "")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/quicktest.log")
	v.SetDefault("logging.file_output.level", "info")
}
