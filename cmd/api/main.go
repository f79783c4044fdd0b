package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"

	api "recipe-ingest/internal/api"
	"recipe-ingest/internal/blob"
	"recipe-ingest/internal/config"
	"recipe-ingest/internal/conflict"
	"recipe-ingest/internal/extract"
	"recipe-ingest/internal/ingest"
	"recipe-ingest/internal/jobs"
	"recipe-ingest/internal/ratelimit"
	"recipe-ingest/internal/store"
	"recipe-ingest/internal/telemetry"
)

func main() {
	cfg := config.Load()
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if cfg.Env == "dev" {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	recipes, err := store.NewPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer recipes.Close()

	if err := recipes.RunMigrations(ctx); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	var (
		jobStore jobs.Store
		limiter  ratelimit.Limiter
	)
	if cfg.JobStore == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		jobStore = jobs.NewRedisStore(redisClient, cfg.JobTTL)
		limiter = ratelimit.NewTokenBucket(redisClient, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	} else {
		jobStore = jobs.NewMemoryStore()
		limiter = ratelimit.NewMemoryBucket(cfg.RateLimitCapacity, cfg.RateLimitRefill)
	}

	blobs, err := blob.NewStore(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	thumbs := blob.NewThumbnailer(blobs, cfg.ThumbnailWidth, cfg.FetchTimeout, cfg.FetchMaxBytes)

	urls := extract.NewURLAdapter(&http.Client{Timeout: cfg.FetchTimeout}, cfg.FetchMaxBytes)
	svc := ingest.NewService(recipes, jobStore, urls, blobs, thumbs, logger)
	resolver := conflict.NewResolver(recipes, logger)

	go sweepJobs(ctx, jobStore, cfg.SweepInterval, cfg.JobTTL, logger)

	server := api.New(cfg, svc, jobStore, resolver, limiter, logger)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("api listening on :%s", cfg.HTTPPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}

// sweepJobs evicts progress entries older than maxAge on a fixed interval.
func sweepJobs(ctx context.Context, jobStore jobs.Store, interval, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := jobStore.Sweep(ctx, maxAge)
			if err != nil {
				logger.Warn("job sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				telemetry.JobsSwept.Add(float64(removed))
				logger.Info("swept stale jobs", "removed", removed)
			}
		}
	}
}
