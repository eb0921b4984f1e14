package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quicktest-hq/quicktest/cmd/dashboard"
	"github.com/quicktest-hq/quicktest/cmd/history"
	"github.com/quicktest-hq/quicktest/cmd/seed"
	"github.com/quicktest-hq/quicktest/cmd/serve"
	"github.com/quicktest-hq/quicktest/cmd/submit"
	"github.com/quicktest-hq/quicktest/internal/buildinfo"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings, info *buildinfo.Context) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "quicktest",
		Short:         "Collaborative test session tracking",
		Version:       info.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(buildinfo.String(info) + "\n")

	if err := setupFlags(rootCmd, &configPath); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		seed.Command(settings),
		dashboard.Command(settings),
		submit.Command(settings),
		history.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, info, configPath)
	}

	return rootCmd
}

// initialize loads configuration and sets up logging and error reporting.
func initialize(settings *conf.Settings, info *buildinfo.Context, configPath string) error {
	var (
		loaded *conf.Settings
		err    error
	)
	if configPath != "" {
		loaded, err = conf.LoadFile(configPath)
	} else {
		loaded, err = conf.Load()
	}
	if err != nil {
		return err
	}
	loaded.Version = info.GetVersion()
	loaded.BuildDate = info.GetBuildDate()
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	environment := "production"
	if settings.Debug {
		environment = "development"
	}
	if err := errors.InitSentry(settings.Telemetry.SentryDSN, environment, buildinfo.Release(info)); err != nil {
		central.Module("main").Warn("error reporting disabled", logger.Error(err))
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configPath *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configPath, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/quicktest, /etc/quicktest)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("db-driver", conf.DriverSQLite, "Database driver: sqlite, mysql or postgres")
	flags.String("db-path", "", "SQLite database file")
	flags.String("base-url", "", "API base URL used by client commands")
	flags.Uint("tester", 0, "Tester identity used by client commands")
	flags.Bool("strict", false, "Reject malformed dashboard responses instead of degrading")

	bindings := map[string]string{
		"debug":           "debug",
		"database.driver": "db-driver",
		"database.path":   "db-path",
		"client.baseurl":  "base-url",
		"client.testerid": "tester",
		"client.strict":   "strict",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
