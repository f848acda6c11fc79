package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sat/coverd/internal/api"
	"github.com/sat/coverd/internal/auth"
	"github.com/sat/coverd/internal/fleet"
	"github.com/sat/coverd/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("COVERD_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	visCfg := loadVisibilityConfig(logger)

	trustProxy := false
	if v := os.Getenv("COVERD_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid COVERD_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			trustProxy = b
		}
	}

	// Fleet storage is optional: if the database cannot be opened the
	// server still serves the stateless optimization endpoints.
	fleets := openFleetStore(logger)
	if fleets != nil {
		defer fleets.Close()
	}

	metrics.SetDemoFleetSize(len(fleet.Demo()))

	srv := api.NewServer(api.Config{Addr: addr, TrustProxy: trustProxy}, logger, authCfg, fleets, visCfg)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"fleet_storage_enabled", fleets != nil,
			"max_horizon_hours", visCfg.MaxHorizonHours,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("COVERD_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("COVERD_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("COVERD_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("COVERD_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadVisibilityConfig(logger *slog.Logger) api.VisibilityConfig {
	cfg := api.VisibilityConfig{
		MaxSatellites:   32,
		MaxHorizonHours: 72,
	}

	if v := os.Getenv("COVERD_VIS_MAX_SATELLITES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid COVERD_VIS_MAX_SATELLITES value, using default", "value", v, "default", cfg.MaxSatellites)
		} else {
			cfg.MaxSatellites = n
		}
	}

	if v := os.Getenv("COVERD_VIS_MAX_HORIZON_HOURS"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			logger.Warn("invalid COVERD_VIS_MAX_HORIZON_HOURS value, using default", "value", v, "default", cfg.MaxHorizonHours)
		} else {
			cfg.MaxHorizonHours = n
		}
	}

	logger.Info("visibility config",
		"max_satellites", cfg.MaxSatellites,
		"max_horizon_hours", cfg.MaxHorizonHours,
	)

	return cfg
}

func openFleetStore(logger *slog.Logger) *fleet.Store {
	path := os.Getenv("COVERD_DB_PATH")
	if path == "" {
		path = "/tmp/coverd/coverd.db"
	}

	store, err := fleet.Open(path)
	if err != nil {
		logger.Warn("fleet storage unavailable, persistence endpoints disabled", "path", path, "error", err)
		return nil
	}
	logger.Info("fleet storage ready", "path", path)
	return store
}
