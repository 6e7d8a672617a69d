package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"kalpem/internal/acquisition"
	"kalpem/internal/charts"
	"kalpem/internal/config"
	apierrors "kalpem/internal/errors"
	"kalpem/internal/exporter"
	"kalpem/internal/infrastructure"
	customMiddleware "kalpem/internal/middleware"
	"kalpem/internal/services"
	handlers "kalpem/internal/transport/http"
	ws "kalpem/internal/websocket"
)

// IndexFile is the dashboard page inside the frontend filesystem.
const IndexFile = "index.html"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	WebSocketHub  *ws.Hub
	Dashboard     *services.DashboardService
	Refresher     *services.Refresher
	HealthService *services.HealthService
	FrontendFS    fs.FS
}

// NewApplication loads configuration and the process-wide logger, then
// builds the application.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, frontendFS, logger)
}

// New wires every component from an already loaded configuration.
func New(cfg *config.Config, frontendFS fs.FS, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths := cfg.ResolvePaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(
		infrastructure.OTelConfigFromSettings(cfg.Telemetry, config.AppVersion), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		FrontendFS:    frontendFS,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the refresh pipeline: sources and backups feed
// the dashboard service, which publishes snapshots to the websocket hub.
func (a *Application) initializeServices() error {
	backup := exporter.NewBackupWriter(a.Paths.BackupXLSX, a.Paths.BackupCSV, a.Logger, a.Metrics)

	acquirer, err := acquisition.NewFromConfig(context.Background(), a.Config, backup, a.Logger, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize data sources: %w", err)
	}

	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)

	a.Dashboard = services.NewDashboardService(
		acquirer,
		exporter.NewWorkbookExporter(a.Logger, a.Metrics),
		a.Logger,
		services.WithNotifier(a.WebSocketHub),
		services.WithChartRenderer(charts.NewRenderer(a.Logger)),
		services.WithMetrics(a.Metrics),
	)

	a.Refresher = services.NewRefresher(services.ForDashboard(a.Dashboard), a.Config.Source.RefreshInterval, a.Logger)
	a.HealthService = services.NewHealthService(a.Paths, a.Dashboard, a.WebSocketHub, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// Only middleware that leaves the ResponseWriter alone runs in front of
	// the websocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.allowedOrigins(), a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle(config.WebSocketEndpoint, wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		a.setupAPIRoutes(r, errorHandler)

		if a.FrontendFS != nil {
			r.Get("/", handlers.ServeIndex(a.FrontendFS, IndexFile, a.Logger))
		}
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, a.Logger, errorHandler)
		r.Mount("/", dashboardHandler.Routes())
	})
}

// allowedOrigins is the configured origin list plus the server's own
// loopback addresses.
func (a *Application) allowedOrigins() []string {
	origins := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	for _, o := range a.Config.Security.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start loads the first snapshot and starts the background services. A
// failed first load is logged, not returned: the dashboard still serves an
// error status and retries on the next tick.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.WebSocketHub.Start()

	snap, err := a.Dashboard.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Logger.WarnContext(ctx, "Initial load failed", slog.String("error", err.Error()))
	} else {
		a.Logger.InfoContext(ctx, "Initial load complete",
			slog.String("source", snap.Status.Source),
			slog.String("status", snap.Status.Label),
			slog.Int("records", snap.Records.Len()))
	}

	a.Refresher.Start(ctx)
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Refresher.Stop()
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Listening",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(gctx, "Received shutdown signal")
		return a.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// performStartupHealthCheck reports problems the dashboard can run with
// but an operator should know about.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	testFile := filepath.Join(a.Paths.DataDir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		warnings = append(warnings, fmt.Sprintf("data directory not writable: %s", a.Paths.DataDir))
	} else {
		os.Remove(testFile)
	}

	if !config.FileExists(a.Paths.DefaultCSV) {
		warnings = append(warnings, fmt.Sprintf("default data file not found: %s", a.Paths.DefaultCSV))
	}

	if a.Config.Source.UseRemote && a.Config.Source.SheetID != "" && !config.FileExists(a.Paths.CredentialsFile) {
		warnings = append(warnings, fmt.Sprintf("sheets credentials not found: %s", a.Paths.CredentialsFile))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
