// Package main is the entry point for the student analytics worker.
//
// The worker keeps per-user submission statistics fresh:
// - recomputes and caches analytics snapshots on demand
// - marks cached snapshots dirty when new submissions are judged
// - periodically sweeps active users and purges stale cache entries
// - exposes Prometheus metrics for cache and recompute behavior
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tf-oj/student-analytics/config"
	"github.com/tf-oj/student-analytics/internal/application/analytics"
	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/internal/infrastructure/messaging"
	"github.com/tf-oj/student-analytics/internal/infrastructure/metrics"
	"github.com/tf-oj/student-analytics/internal/infrastructure/persistence/postgres"
	"github.com/tf-oj/student-analytics/internal/infrastructure/persistence/redis"
	"github.com/tf-oj/student-analytics/internal/infrastructure/scheduler"
	"github.com/tf-oj/student-analytics/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting student analytics worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbCfg := postgres.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	dbConn, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS + STATS CACHE
	// ─────────────────────────────────────────────────────────────────────────
	var statsCache stats.Cache = stats.DisabledCache{}

	if cfg.Cache.Enabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.Addr = cfg.Redis.RedisAddr()
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisClient, err := redis.NewClient(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			log.Info("closing Redis connection...")
			_ = redisClient.Close()
		}()

		statsCache = redis.NewStatsCache(redisClient, cfg.Cache.TTL)
		log.Info("Redis connection established", "ttl", cfg.Cache.TTL.String())
	} else {
		log.Warn("stats cache disabled, every request recomputes")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	submissionRepo := postgres.NewSubmissionRepository(dbConn)
	problemRepo := postgres.NewProblemRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. METRICS
	// ─────────────────────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	analyticsMetrics := metrics.NewAnalytics(registry)

	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux}

		go func() {
			log.Info("metrics server listening", "addr", cfg.Observability.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ANALYTICS SERVICE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing analytics service...")
	service := analytics.NewService(
		analytics.NewRecordAggregator(submissionRepo),
		analytics.NewProblemAggregator(problemRepo, problemRepo),
		statsCache,
		log,
		analyticsMetrics,
	)

	statsOpts := analytics.DefaultOptions()
	statsOpts.Weeks = cfg.Analytics.Weeks
	statsOpts.Months = cfg.Analytics.Months
	statsOpts.TopTags = cfg.Analytics.TopTags

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT BUS (submission-driven cache invalidation)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	bus := messaging.NewBus(log)
	defer func() {
		log.Info("closing event bus...")
		bus.Close()
	}()

	err = bus.Subscribe(messaging.EventSubmissionJudged, func(ctx context.Context, ev messaging.Event) error {
		judged, ok := ev.(messaging.SubmissionJudged)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", ev)
		}
		return service.InvalidateUser(ctx, judged.UserID)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to judge events: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched = scheduler.New(log, timeutil.ShanghaiTZ)

		sweep := scheduler.NewDirtySweepJob(submissionRepo, statsCache, cfg.Scheduler.DirtySweepLookback, log)
		if err := sched.Register(cfg.Scheduler.DirtySweepSpec, sweep); err != nil {
			return err
		}

		if cfg.Scheduler.WarmEnabled {
			warm := scheduler.NewWarmJob(submissionRepo, service, statsOpts, cfg.Scheduler.DirtySweepLookback, log)
			if err := sched.Register(cfg.Scheduler.WarmSpec, warm); err != nil {
				return err
			}
		}

		janitor := scheduler.NewJanitorJob(statsCache, cfg.Cache.Retention, log)
		if err := sched.Register(cfg.Scheduler.JanitorSpec, janitor); err != nil {
			return err
		}

		sched.Start()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("student analytics worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging per environment.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
