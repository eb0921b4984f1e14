package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quicktest-hq/quicktest/internal/api"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/datastore"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/mqtt"
	"github.com/quicktest-hq/quicktest/internal/observability"
	"github.com/quicktest-hq/quicktest/internal/observability/metrics"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the quicktest REST API",
		Long:  "Serve the quicktest API: dashboards, feedback writes, history, changelog, health and metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	cmd.Flags().String("listen", api.DefaultListen, "Listen address")
	cmd.Flags().Bool("mqtt", false, "Publish feedback changes to the MQTT broker")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("mqtt.enabled", cmd.Flags().Lookup("mqtt"))

	return cmd
}

func run(ctx context.Context, settings *conf.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Global().Module("serve")

	db, err := datastore.NewManager(&settings.Database, logger.Global().Module("datastore"))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()
	if err := db.Initialize(); err != nil {
		return err
	}

	opts := []api.ServerOption{
		api.WithDatabase(db),
		api.WithLogger(logger.Global().Module("api")),
	}

	var m *observability.Metrics
	if settings.Telemetry.Metrics {
		if m, err = observability.NewMetrics(); err != nil {
			return err
		}
		opts = append(opts, api.WithMetrics(m))
	}

	if settings.MQTT.Enabled {
		if pub := connectPublisher(ctx, settings, m, log); pub != nil {
			opts = append(opts, api.WithPublisher(pub))
		}
	}

	srv, err := api.New(settings, opts...)
	if err != nil {
		return err
	}

	log.Info("starting quicktest server",
		logger.String("listen", settings.Server.Listen),
		logger.String("driver", settings.Database.Driver),
		logger.Bool("metrics", settings.Telemetry.Metrics),
		logger.Bool("mqtt", settings.MQTT.Enabled),
		logger.String("version", settings.Version))

	return srv.Serve(ctx)
}

// connectPublisher returns nil when the broker cannot be reached; the server
// runs without change notifications in that case.
func connectPublisher(ctx context.Context, settings *conf.Settings, m *observability.Metrics, log logger.Logger) mqtt.Publisher {
	cfg := mqtt.DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	if settings.MQTT.Topic != "" {
		cfg.Topic = settings.MQTT.Topic
	}

	var mm *metrics.MQTTMetrics
	if m != nil {
		mm = m.MQTT
	}
	client, err := mqtt.NewClient(cfg, mm, logger.Global().Module("mqtt"))
	if err != nil {
		log.Warn("mqtt disabled", logger.Error(err))
		return nil
	}
	if err := client.Connect(ctx); err != nil {
		log.Warn("mqtt broker unreachable, continuing without notifications",
			logger.String("broker", cfg.Broker),
			logger.Error(err))
		client.Disconnect()
		return nil
	}
	return mqtt.NewFeedbackPublisher(client, cfg.Topic)
}
