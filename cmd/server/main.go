package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/backup"
	"mercadinho/backend/internal/cache"
	"mercadinho/backend/internal/config"
	"mercadinho/backend/internal/extraction"
	"mercadinho/backend/internal/guard"
	"mercadinho/backend/internal/httpapi"
	"mercadinho/backend/internal/insights"
	"mercadinho/backend/internal/logger"
	"mercadinho/backend/internal/service"
	"mercadinho/backend/internal/store"
	"mercadinho/backend/internal/store/memory"
	pgstore "mercadinho/backend/internal/store/postgres"
	redisstore "mercadinho/backend/internal/store/redis"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	deps, err := wire(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}

	api := httpapi.New(deps.service, cfg.AllowedOrigin, log)
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Address()).Info("mercadinho backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}

	for _, closeFn := range deps.closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close error")
		}
	}

	log.Info("server stopped")
}

type dependencies struct {
	service *service.Service
	closers []func() error
}

// wire builds the service from configuration. Postgres wins over Redis; without
// either the state lives in memory for the life of the process.
func wire(ctx context.Context, cfg config.Config, log *logrus.Logger) (dependencies, error) {
	var deps dependencies

	kv, redisClient, closers, err := openStore(ctx, cfg, log)
	if err != nil {
		return deps, err
	}
	deps.closers = closers

	var busy guard.Guard = guard.NewLocal()
	insightsCache := cache.InsightsCache(cache.NoopInsightsCache{})
	if redisClient != nil {
		busy = guard.NewRedis(redisClient, time.Duration(cfg.BusyLockTTLSeconds)*time.Second, cfg.StateKeyPrefix, log)
		insightsCache = cache.NewRedisInsightsCache(redisClient)
		log.Info("busy guard and insights cache: redis")
	}

	var extractor extraction.Extractor = extraction.Disabled{}
	if cfg.GeminiAPIKey != "" {
		extractor = extraction.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, log)
		log.WithField("model", cfg.GeminiModel).Info("extraction: gemini")
	} else {
		log.Warn("GEMINI_API_KEY not set, scans and insights are disabled")
	}

	storage, err := backup.New(ctx, cfg.Backup)
	if err != nil {
		deps.close(log)
		return dependencies{}, fmt.Errorf("cloud backup: %w", err)
	}
	deps.closers = append(deps.closers, storage.Close)
	if cfg.Backup.Provider != "" {
		log.WithField("provider", cfg.Backup.Provider).Info("cloud backup enabled")
	}

	engine := insights.NewEngine(extractor, insightsCache, time.Duration(cfg.InsightsTTLSeconds)*time.Second, cfg.StateKeyPrefix, log)
	svc, err := service.New(ctx, service.Options{
		KV:            kv,
		KeyPrefix:     cfg.StateKeyPrefix,
		Guard:         busy,
		Extractor:     extractor,
		Insights:      engine,
		Backup:        storage,
		Logger:        log,
		DefaultMargin: cfg.DefaultMarginPercent,
		PhoneRegion:   cfg.PhoneRegion,
	})
	if err != nil {
		deps.close(log)
		return dependencies{}, fmt.Errorf("load state: %w", err)
	}
	deps.service = svc
	return deps, nil
}

func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (store.KV, goredis.UniversalClient, []func() error, error) {
	closers := make([]func() error, 0, 2)

	var redisClient goredis.UniversalClient
	var redisKV *redisstore.Store
	if cfg.RedisAddr != "" {
		candidate := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := candidate.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, continuing without it")
			_ = candidate.Close()
		} else {
			redisKV = candidate
			redisClient = candidate.Client()
			closers = append(closers, candidate.Close)
		}
	}

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			for _, closeFn := range closers {
				_ = closeFn()
			}
			return nil, nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set, refusing to start in memory: %w", err)
		}
		closers = append(closers, pg.Close)
		log.Info("state store: postgres")
		return pg, redisClient, closers, nil
	}

	if redisKV != nil {
		log.Info("state store: redis")
		return redisKV, redisClient, closers, nil
	}

	if cfg.SeedDemoData {
		log.Info("state store: in-memory with demo data")
		return memory.NewSeeded(cfg.StateKeyPrefix), nil, closers, nil
	}
	log.Info("state store: in-memory")
	return memory.New(), nil, closers, nil
}

func (d dependencies) close(log *logrus.Logger) {
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close error")
		}
	}
}
