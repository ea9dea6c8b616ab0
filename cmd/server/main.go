// Command server runs the relay backend: the HTTP API that accepts messages
// from anonymous users, queues them for the admin, and serves response and
// pending snapshots to polling clients.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-relay-backend/internal/config"
	httpapi "github.com/tbourn/go-relay-backend/internal/http"
	"github.com/tbourn/go-relay-backend/internal/observability"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/services"
	"github.com/tbourn/go-relay-backend/internal/store"
	"github.com/tbourn/go-relay-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	pending, responses, err := buildStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}

	uploads, err := services.NewUploadService(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("upload dir init failed")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, pending, responses, uploads, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("version", version).
			Str("port", cfg.Port).
			Str("store", cfg.StoreBackend).
			Str("admin", cfg.AdminUsername).
			Msg("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

// buildStores wires the configured persistence backend. Memory keeps the
// original single-process semantics; sqlite adds durability across restarts.
func buildStores(cfg config.Config) (store.PendingStore, store.ResponseStore, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
		pending, err := store.NewGormPending(db, cfg.QueueCapacity)
		if err != nil {
			return nil, nil, err
		}
		responses, err := store.NewGormResponses(db)
		if err != nil {
			return nil, nil, err
		}
		return pending, responses, nil
	default:
		return store.NewMemoryPending(cfg.QueueCapacity), store.NewMemoryResponses(), nil
	}
}
