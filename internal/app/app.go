package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seasonalcli/internal/config"
	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/infrastructure"
	customMiddleware "seasonalcli/internal/middleware"
	"seasonalcli/internal/seasonal"
	"seasonalcli/internal/services"
	handlers "seasonalcli/internal/transport/http"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	BinaryPath    string
	Adjuster      *seasonal.Adjuster
	AdjustService *services.AdjustService
	HealthService *services.HealthService
	ErrorHandler  *apperrors.ErrorHandler
}

// Options overrides collaborators normally derived from configuration
type Options struct {
	// Invoker replaces the x13ashtml subprocess, mainly for tests.
	Invoker seasonal.Invoker
	// Providers replaces OpenTelemetry initialization.
	Providers *infrastructure.OTelProviders
}

// NewApplication creates a new application instance from the environment
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.PrepareLogging(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to prepare log directory: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, nil)
}

// New assembles an application around an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger, options *Options) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if options == nil {
		options = &Options{}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	providers := options.Providers
	if providers == nil {
		providers, err = infrastructure.InitializeOTel(cfg.Telemetry, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
	}

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		BinaryPath:    paths.X13BinaryPath(cfg.X13),
		ErrorHandler:  apperrors.NewErrorHandler(logger, false),
	}

	app.initializeServices(options.Invoker)
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the adjustment pipeline and the services on top of it
func (a *Application) initializeServices(invoker seasonal.Invoker) {
	if invoker == nil {
		invoker = seasonal.NewX13Invoker(a.BinaryPath, a.Logger)
	}

	a.Adjuster = seasonal.NewAdjuster(invoker, a.Logger, &seasonal.AdjusterOptions{
		WorkRoot:   a.Config.X13.WorkRoot,
		MaxRecords: a.Config.Limits.MaxRecords,
		Tracer:     a.OTelProviders.Tracer,
		Metrics:    a.Metrics,
	})

	a.AdjustService = services.NewAdjustService(a.Adjuster, a.Logger, &services.AdjustServiceOptions{
		DefaultTables:  a.Config.X13.DefaultTables,
		AllowOutputDir: a.Config.X13.AllowOutputDir,
		SpecRoot:       a.Config.X13.SpecRoot,
	})

	a.HealthService = services.NewHealthService(config.AppVersion, a.BinaryPath, a.Config.X13.WorkRoot, a.Logger)
}

// setupRouter configures the HTTP router with all routes.
// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → security → rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apperrors.RecoveryMiddleware(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Limits.RPS > 0 {
		r.Use(customMiddleware.NewRateLimiter(a.Config.Limits.RPS, a.Config.Limits.Burst, a.Logger).Handler)
	}

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.setupAPIRoutes(r)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		// Adjustment runs hold a run slot for as long as the binary runs
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.RequireJSON)
			r.Use(limitBody(a.Config.Server.MaxBodyBytes))
			r.Use(customMiddleware.NewRunLimiter(a.Config.Limits.MaxConcurrentRuns, a.Logger).Handler)

			adjustHandler := handlers.NewAdjustHandler(a.AdjustService, a.ErrorHandler, a.Logger)
			r.Mount("/v1", adjustHandler.Routes())
		})
	})
}

// limitBody caps request bodies at max bytes when max is positive
func limitBody(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the HTTP server in the background. A listen failure
// cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("binary_path", a.BinaryPath))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if status := a.HealthService.ReadinessCheck(ctx); !status.Ready() {
		a.Logger.WarnContext(ctx, "Startup readiness check failed; adjustment requests will fail until resolved",
			slog.Any("services", status.Services))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully shuts down the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}
