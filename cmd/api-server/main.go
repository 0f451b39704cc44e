package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/veloxdental/scheduling-middleware/internal/api"
	"github.com/veloxdental/scheduling-middleware/internal/config"
	"github.com/veloxdental/scheduling-middleware/internal/db"
	"github.com/veloxdental/scheduling-middleware/internal/metrics"
	"github.com/veloxdental/scheduling-middleware/internal/pms"
	"github.com/veloxdental/scheduling-middleware/internal/redisclient"
	"github.com/veloxdental/scheduling-middleware/internal/scheduling"
)

const version = "2.0.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "scheduling-middleware").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.Env == "dev" {
		log = log.Level(zerolog.DebugLevel).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("pms", cfg.PMSBaseURL).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	defaults := scheduling.Credentials{OfficeCode: cfg.OfficeCode, APIKey: cfg.PMSAPIKey}
	remote := pms.NewClient(cfg.PMSBaseURL, cfg.PractitionerID, defaults, cfg.PMSTimeout)

	ledger := scheduling.NewPgLedger(pgPool)
	locker := redisclient.NewRedisCancelLocker(rdb, cfg.CancelLockTTL)
	reconciler := scheduling.NewReconciler(remote, ledger, m, log, cfg.PractitionerID, cfg.VerifyAttempts, cfg.VerifyDelay)
	svc := scheduling.NewService(remote, ledger, reconciler, locker, m, log)

	router := api.NewRouter(api.RouterConfig{
		Service:     svc,
		PgPool:      pgPool,
		Redis:       rdb,
		Remote:      remote,
		Credentials: defaults,
		Registry:    registry,
		Log:         log,
		Env:         cfg.Env,
		Version:     version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}
