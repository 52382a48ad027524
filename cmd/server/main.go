package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Relay/internal/adapters/http"
	"github.com/dkeye/Relay/internal/adapters/relay"
	"github.com/dkeye/Relay/internal/auth"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/history"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	// Store selection: redis when an address is configured, otherwise
	// in-process maps (history then only lives until restart).
	var histStore history.Store
	var credStore auth.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		histStore = history.NewRedis(client, cfg.HistoryTTL, cfg.HistoryCap)
		credStore = auth.NewRedis(client)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis stores")
	} else {
		histStore = history.NewMemory(cfg.HistoryTTL, cfg.HistoryCap)
		credStore = auth.NewMemory()
		log.Info().Msg("using in-memory stores")
	}

	rooms := core.NewManager(ctx, histStore)
	gate := auth.NewGate(credStore)
	ctl := relay.NewController(rooms, gate, cfg)
	admin := router.NewAdminHandler(credStore, rooms, cfg)

	r := router.SetupRouter(ctx, cfg, ctl, admin)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Relay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
