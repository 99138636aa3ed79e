// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"feed-ranking-workers/internal/common/camunda"
	"feed-ranking-workers/internal/common/config"
	"feed-ranking-workers/internal/common/database"
	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/observability"
	"feed-ranking-workers/internal/ranking"
	"feed-ranking-workers/internal/store"
	"feed-ranking-workers/internal/workers/feed/pipeline"

	cjm "feed-ranking-workers/internal/workers/feed/calculate-job-match"
	dvf "feed-ranking-workers/internal/workers/feed/diversify-feed"
	rkf "feed-ranking-workers/internal/workers/feed/rank-feed"
	sfi "feed-ranking-workers/internal/workers/feed/score-feed-items"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// retryingHandler is implemented by every feed worker handler.
type retryingHandler interface {
	camunda.JobHandler
	UseRetrier(pipeline.CommandRetrier)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting feed ranking worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
		obs = &observability.Observability{}
	}
	if cfg.Tracing.Enabled {
		err := obs.EnableTracing(observability.TracingOptions{
			ServiceName:  cfg.App.Name,
			Version:      cfg.App.Version,
			Environment:  cfg.App.Environment,
			SamplingRate: cfg.Tracing.SamplingRate,
			Endpoint:     cfg.Tracing.Endpoint,
			Insecure:     cfg.Tracing.Insecure,
		})
		if err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		}
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	// --- Ranking engine and stores ---
	engineCfg, err := cfg.Ranking.Engine()
	if err != nil {
		zapLog.Fatal("invalid ranking configuration", zap.Error(err))
	}

	db := pg.GetDB()
	p := pipeline.New(ranking.NewScorer(engineCfg), pipeline.Deps{
		Profiles:     store.NewCachedProfileStore(store.NewProfileStore(db), rdb.GetClient(), cfg.Ranking.ProfileCacheTTL),
		Interactions: store.NewInteractionStore(db),
		Social:       store.NewSocialGraphStore(db),
		Cache:        store.NewScoreCache(rdb.GetClient(), cfg.Ranking.CacheTTL),
	}, log)

	sources := rkf.Sources{
		Jobs:     store.NewJobIndex(esClient.Client, cfg.Database.Elasticsearch.JobsIndex),
		Posts:    store.NewPostStore(db),
		Observer: obs,
	}

	// --- Register feed workers ---
	var workers []*camunda.CamundaWorker
	register := func(taskType string, build func(wcfg config.WorkerConfig, timeout time.Duration) retryingHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		timeout := config.GetDuration(wcfg.Timeout)

		handler := build(wcfg, timeout)
		handler.UseRetrier(zeebe)

		w := camunda.NewWorker(zeebe.Zeebe(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       timeout,
			Observer:      obs,
		}, handler, log)
		w.Start()
		workers = append(workers, w)

		zapLog.Info("worker started",
			zap.String("taskType", taskType),
			zap.Int("maxJobsActive", wcfg.MaxJobsActive),
			zap.Int("timeout_ms", wcfg.Timeout),
		)
	}

	register(cjm.TaskType, func(wcfg config.WorkerConfig, timeout time.Duration) retryingHandler {
		c := cjm.LoadConfig()
		c.Timeout = timeout
		c.RequireProfile = wcfg.RequireProfile
		return cjm.NewHandler(c, p, log)
	})
	register(sfi.TaskType, func(wcfg config.WorkerConfig, timeout time.Duration) retryingHandler {
		c := sfi.LoadConfig()
		c.Timeout = timeout
		c.SlowPassThreshold = cfg.Ranking.SlowPassThreshold
		return sfi.NewHandler(c, p, log)
	})
	register(dvf.TaskType, func(wcfg config.WorkerConfig, timeout time.Duration) retryingHandler {
		c := dvf.LoadConfig()
		c.Timeout = timeout
		c.SlowPassThreshold = cfg.Ranking.SlowPassThreshold
		c.Diversity = engineCfg.Diversity
		c.PageSize = cfg.Ranking.PageSize
		c.MaxPageSize = cfg.Ranking.MaxPageSize
		return dvf.NewHandler(c, log)
	})
	register(rkf.TaskType, func(wcfg config.WorkerConfig, timeout time.Duration) retryingHandler {
		c := rkf.LoadConfig()
		c.Timeout = timeout
		c.SlowPassThreshold = cfg.Ranking.SlowPassThreshold
		c.Diversity = engineCfg.Diversity
		c.PageSize = cfg.Ranking.PageSize
		c.MaxPageSize = cfg.Ranking.MaxPageSize
		c.CandidateLimit = cfg.Ranking.CandidateLimit
		c.JobLookback = cfg.Ranking.JobLookback
		c.PostLookback = cfg.Ranking.PostLookback
		c.RequireProfile = wcfg.RequireProfile
		return rkf.NewHandler(c, p, sources, log)
	})
	zapLog.Info("feed workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	deps := map[string]database.Pinger{
		"zeebe":         zeebe,
		"postgres":      pg,
		"elasticsearch": esClient,
		"redis":         rdb,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		report := database.CheckAll(r.Context(), deps, 2*time.Second)
		w.Header().Set("Content-Type", "application/json")
		if !report.Healthy {
			zapLog.Warn("readiness check failed", zap.Strings("failing", report.Failing()))
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zapLog.Error("Error closing Redis client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL pool", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
