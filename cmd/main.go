package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchgate/backend"
	"matchgate/config"
	"matchgate/health"
	"matchgate/metrics"
	"matchgate/proxy"
	"matchgate/resolver"
)

var version = "source"

func setLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	log.Info().Msgf("Starting matchgate version: %s", version)

	cfg := config.Load(os.Getenv)
	setLogger(cfg.LogLevel)
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")

	// Preflight required configuration
	if cfg.BackendURL == "" {
		log.Fatal().Msg("missing backend URL; set GATEWAY_BACKEND_URL")
	}
	if cfg.AuthKey == "" {
		log.Fatal().Msg("missing backend auth key; set GATEWAY_AUTH_KEY")
	}

	// Context and shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics and health HTTP server
	opsMux := http.NewServeMux()
	metrics.Register(opsMux)
	health.Register(opsMux)

	opsSrv := &http.Server{
		Addr:              cfg.OpsAddr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.OpsAddr()).Msg("starting metrics/health server")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ops server error")
		}
	}()

	client := backend.NewHTTPClient(cfg.BackendURL, cfg.AuthKey, nil)
	res := resolver.New(client, resolver.Config{
		Environment:      cfg.Environment,
		MinTicketAge:     cfg.MinTicketAge,
		PollAttempts:     cfg.PollAttempts,
		PollInterval:     cfg.PollInterval,
		PreferredRegions: cfg.PreferredRegions,
	})
	if cfg.PortName != "" {
		res = res.WithPortPolicy(resolver.PortByName(cfg.PortName))
	}
	handler := proxy.NewHandler(res)

	gwSrv := &http.Server{
		Addr:              cfg.GatewayAddr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.GatewayAddr()).Msg("starting gateway server")
		health.SetReady(true)
		if err := gwSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway server error")
		}
	}()

	// Block until shutdown
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gwSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway server graceful shutdown failed")
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
