package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"classlog/auth-bridge/internal/config"
	"classlog/auth-bridge/internal/db"
	internalhttp "classlog/auth-bridge/internal/http"
	"classlog/auth-bridge/internal/ledger"
	"classlog/auth-bridge/internal/logging"
	"classlog/auth-bridge/internal/metrics"
	"classlog/auth-bridge/internal/repository"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode reports err and flushes the logger before the process exits.
func exitCode(log *zap.Logger, err error) int {
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Error("auth bridge stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		for _, path := range applied {
			log.Info("migration applied", zap.String("source", path))
		}
	}

	store := repository.NewStore(pool)
	var tokens ledger.Ledger = store

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close error", zap.Error(err))
			}
		}()
		tokens = ledger.NewCached(store, redisClient, cfg.SessionTTL, log.Named("ledger"))
		log.Info("revocation cache enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	server, err := internalhttp.NewServer(cfg, tokens, store, metrics.New(true), log.Named("http"))
	if err != nil {
		return fmt.Errorf("server init failed: %w", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("auth bridge listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown error", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
