// Command analytics runs the suggestion analytics service.
//
// It consumes suggestion events from Kafka, aggregates them in memory (per
// view lookups, fallbacks to the latest notes, latency percentiles, top
// queries), snapshots the totals to PostgreSQL and serves them at
// GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and SCRAPPR_* env when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker()
	agg := analytics.NewAggregator()

	// Snapshots are optional; without Postgres the totals live in memory.
	var snapshots analytics.SnapshotLister
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
	} else {
		defer db.Close()
		snapshotStore := aggregator.NewStore(db)
		if err := snapshotStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create analytics schema", "error", err)
			os.Exit(1)
		}
		if latest, err := snapshotStore.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not load latest snapshot", "error", err)
		} else if latest != nil {
			agg.Restore(latest.Stats)
			slog.Info("analytics restored from snapshot",
				"captured_at", latest.CapturedAt,
				"total_suggestions", latest.Stats.TotalSuggestions,
			)
		}
		snapshotStore.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = snapshotStore
		checker.Register("postgres", db.HealthCheck())
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	checker.Register("kafka", kafka.HealthCheck(cfg.Kafka.Brokers))
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	mux := http.NewServeMux()
	analytics.NewHandler(agg, snapshots).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
