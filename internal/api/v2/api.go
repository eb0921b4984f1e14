// Package api implements the quicktest REST API v2 on echo.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/datastore"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/mqtt"
	"github.com/quicktest-hq/quicktest/internal/observability"
)

// publishTimeout bounds one MQTT delivery after a committed write.
const publishTimeout = 5 * time.Second

// Controller manages the API routes and handlers
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DB        datastore.Manager
	Settings  *conf.Settings
	Sessions  repository.SessionRepository
	Feedback  repository.FeedbackRepository
	Changelog repository.ChangelogRepository
	Dashboard *dashboard.Builder

	metrics   *observability.Metrics // nil when telemetry.metrics is off
	publisher mqtt.Publisher
	logger    logger.Logger
	startTime time.Time

	// Cleanup related fields
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // tracks in-flight event publications
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics enables request and domain metrics and the /metrics route.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPublisher sets the publisher notified after every committed feedback write.
func WithPublisher(p mqtt.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates the API controller and registers all routes under /api/v2.
func New(e *echo.Echo, db datastore.Manager, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if db == nil {
		return nil, errors.Newf("api controller requires a datastore").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings == nil {
		settings = &conf.Settings{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		Echo:      e,
		DB:        db,
		Settings:  settings,
		Sessions:  repository.NewSessionRepository(db.DB()),
		Feedback:  repository.NewFeedbackRepository(db.DB()),
		Changelog: repository.NewChangelogRepository(db.DB()),
		publisher: mqtt.NopPublisher{},
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Global().Module("api")
	}

	builderOpts := []dashboard.Option{dashboard.WithLogger(c.logger.Module("dashboard"))}
	if c.metrics != nil {
		builderOpts = append(builderOpts, dashboard.WithRecorder(c.metrics.QuickTest))
	}
	c.Dashboard = dashboard.NewBuilder(c.Sessions, c.Feedback, builderOpts...)

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()
	return c, nil
}

// LoggingMiddleware logs every API request and records HTTP metrics.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if c.metrics != nil {
				c.metrics.HTTP.RequestStarted()
				defer c.metrics.HTTP.RequestFinished()
			}

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()
			code := res.Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
			elapsed := time.Since(start)

			if c.metrics != nil {
				// ctx.Path() is the route template, which keeps label cardinality bounded.
				c.metrics.HTTP.RecordHTTPRequest(req.Method, ctx.Path(), code, elapsed.Seconds())
				c.metrics.HTTP.RecordHTTPResponseSize(req.Method, ctx.Path(), res.Size)
				if err != nil {
					c.metrics.HTTP.RecordHTTPRequestError(req.Method, ctx.Path(), http.StatusText(code))
				}
			}

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("query", req.URL.RawQuery),
				logger.Int("status", code),
				logger.String("ip", ctx.RealIP()),
				logger.Int64("latency_ms", elapsed.Milliseconds()),
			}
			if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
				fields = append(fields, logger.String("request_id", id))
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}
			c.logger.Info("API Request", fields...)

			return err
		}
	}
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	if c.metrics != nil {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"dashboard routes", c.initDashboardRoutes},
		{"feedback routes", c.initFeedbackRoutes},
		{"changelog routes", c.initChangelogRoutes},
	}

	for _, initializer := range routeInitializers {
		c.logger.Debug("initializing routes", logger.String("group", initializer.name))

		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("panic during route initialization",
						logger.String("group", initializer.name),
						logger.Any("panic", r))
				}
			}()
			initializer.fn()
		}()
	}
}

// HealthCheck reports service status and database connectivity.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
		"database":   c.DB.Driver(),
	}

	if c.Settings.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	dbStatus := "connected"
	sqlDB, err := c.DB.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(ctx.Request().Context())
	}
	if err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	code := http.StatusOK
	if dbStatus != "connected" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, response)
}

// publish delivers ev in the background so a slow broker never delays the response.
func (c *Controller) publish(ev mqtt.Event) {
	c.wg.Go(func() {
		ctx, cancel := context.WithTimeout(c.ctx, publishTimeout)
		defer cancel()
		if err := c.publisher.Publish(ctx, ev); err != nil {
			c.logger.Warn("failed to publish feedback event",
				logger.String("action", ev.Action),
				logger.Uint("case_id", ev.CaseID),
				logger.Error(err))
		}
	})
}

// Shutdown waits for pending event publications and releases the publisher.
// This should be called when the application is shutting down
func (c *Controller) Shutdown() {
	c.wg.Wait()
	c.cancel()
	c.publisher.Close()
	c.logger.Debug("API controller shut down")
}
