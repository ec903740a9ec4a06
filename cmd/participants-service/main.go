package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/draftea/flight-booking/participants-service/application"
	"github.com/draftea/flight-booking/participants-service/config"
	"github.com/draftea/flight-booking/participants-service/domain"
	"github.com/draftea/flight-booking/participants-service/handlers"
	"github.com/draftea/flight-booking/shared/logger"
	"github.com/draftea/flight-booking/shared/telemetry"
)

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		logger.New("participants-service", "info").Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting participants service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telConfig := telemetry.ParticipantsServiceConfig.WithOTLPEndpoint(cfg.Telemetry.OTLPEndpoint)
	tel := telemetry.NewTelemetry(telConfig)
	if cfg.Telemetry.Enabled {
		initialized, shutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize telemetry")
		}
		defer shutdown()
		tel = initialized
	}

	steps := application.NewSagaSteps(
		domain.NewInventory(),
		domain.NewPayments(),
		domain.NewLoyalty(),
		domain.NewTicketing(),
		log,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(telemetry.Middleware(tel))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	handlers.NewStepHandlers(steps).RegisterRoutes(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down participants service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}
