/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the installment-tracking server. Handles
  configuration, store selection, dependency injection, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Configure zerolog
  3. Open the selected store (sqlite, redis, or memory)
  4. Wire service, handler, router
  5. Start the server with graceful shutdown

ENVIRONMENT:
  PORT         HTTP port (default 8080)
  STORE        sqlite | redis | memory (default sqlite)
  SQLITE_PATH  database path when STORE=sqlite (default cobranza.db)
  REDIS_URL    connection URL when STORE=redis
  LOG_LEVEL    zerolog level (default info)
  APP_ENV      development | production

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the server stops accepting connections, waits up to
  30s for in-flight requests, then closes the store.

SEE ALSO:
  - api/server.go: router configuration
  - config/config.go: configuration loading
*/
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/solterra/cobranza/api"
	"github.com/solterra/cobranza/config"
	"github.com/solterra/cobranza/contract"
	"github.com/solterra/cobranza/store/memory"
	"github.com/solterra/cobranza/store/redis"
	"github.com/solterra/cobranza/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := newLogger(cfg)

	repo, cleanup, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("store initialization failed")
	}
	defer cleanup()

	svc := contract.NewService(repo, log)
	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store).
			Str("env", cfg.Env).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openStore builds the configured repository and its teardown.
func openStore(cfg *config.Config, log zerolog.Logger) (contract.Repository, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case config.StoreRedis:
		s, err := redis.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	default:
		log.Warn().Msg("using in-memory store, data will not survive restarts")
		return memory.New(), func() {}, nil
	}
}
