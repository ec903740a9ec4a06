package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/draftea/flight-booking/booking-service/config"
	"github.com/draftea/flight-booking/booking-service/handlers"
	"github.com/draftea/flight-booking/shared/logger"
	"github.com/draftea/flight-booking/shared/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.ReadConfig()
	if err != nil {
		logger.New("booking-service", "info").Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("store", cfg.Store.Driver).
		Msg("starting booking service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	deps, err := config.BuildDependencies(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Error().Err(err).Msg("error closing dependencies")
		}
	}()

	// Background work runs with the telemetry of this service
	bgCtx := logger.ToContext(telemetry.WithTelemetry(ctx, deps.Telemetry), log)

	if deps.EventSubscriber != nil {
		if err := deps.EventSubscriber.Subscribe(bgCtx, deps.BookingEventHandlers); err != nil {
			log.Error().Err(err).Msg("error starting event subscriber")
		}
	}

	if deps.RecoveryScheduler != nil {
		// Pick up sagas a previous process left unfinished before taking new traffic
		deps.RecoveryScheduler.RunOnce(bgCtx)
		deps.RecoveryScheduler.Start(bgCtx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(deps, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down booking service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("booking service stopped")
}

func setupRouter(deps *config.Dependencies, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	// Saga calls can legitimately take the sum of all step timeouts
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(telemetry.Middleware(deps.Telemetry))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", handlers.NewMetricsHandler())

	deps.BookingHandlers.RegisterRoutes(r)

	return r
}
