// Command suggest runs the note suggestion service.
//
// It stores notes in PostgreSQL (or serves a read-only YAML/JSON export),
// ranks them against what the user is looking at, caches results in Redis,
// publishes note changes and suggestion analytics to Kafka, and invalidates
// cached suggestions when note-change events arrive.
//
// Usage:
//
//	go run ./cmd/suggest [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes/filestore"
	noteshandler "github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes/handler"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes/publisher"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes/store"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/cache"
	suggesthandler "github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/handler"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/ranker"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/tracing"
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
	slog.Info("starting suggestion service", "port", cfg.Server.Port, "notes_backend", cfg.Notes.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker()

	// Redis-backed suggestion cache. Without Redis every lookup is computed.
	var suggestionCache *cache.SuggestionCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, suggestion caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, _, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
			suggestionCache = cache.New(redisClient, cfg.Redis.CacheTTL, breaker, m)
			checker.Register("redis", redisClient.HealthCheck())
			slog.Info("suggestion cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	var invalidator noteshandler.Invalidator
	if suggestionCache != nil {
		invalidator = suggestionCache
	}

	// Note source.
	var (
		source suggest.NoteSource
		repo   noteshandler.Repository
	)
	switch cfg.Notes.Backend {
	case config.NotesBackendFile:
		fileStore, err := filestore.Open(cfg.Notes.File)
		if err != nil {
			slog.Error("failed to open notes file", "path", cfg.Notes.File, "error", err)
			os.Exit(1)
		}
		source = fileStore
		go func() {
			err := fileStore.Watch(ctx, func(all []notes.Note) {
				slog.Info("notes file reloaded", "notes", len(all))
				if suggestionCache != nil {
					if err := suggestionCache.Invalidate(ctx); err != nil {
						slog.Warn("cache invalidation after reload failed", "error", err)
					}
				}
			})
			if err != nil {
				slog.Error("notes file watcher stopped", "error", err)
			}
		}()
		checker.Register("notes_file", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d notes", fileStore.Len())}
		})
		slog.Info("serving notes from file", "path", fileStore.Path(), "notes", fileStore.Len())
	default:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		noteStore := store.New(db)
		if err := noteStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create notes schema", "error", err)
			os.Exit(1)
		}
		source, repo = noteStore, noteStore
		checker.Register("postgres", db.HealthCheck())
	}

	// Note change events. The consumer keeps the shared cache fresh when
	// notes change through another instance or writer.
	noteProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.NoteEvents)
	defer noteProducer.Close()
	notePublisher := publisher.New(noteProducer, m)
	if suggestionCache != nil {
		noteConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.NoteEvents, "", publisher.HandleEvents(suggestionCache, m))
		go func() {
			if err := noteConsumer.Start(ctx); err != nil {
				slog.Error("note event consumer error", "error", err)
			}
		}()
	}
	checker.Register("kafka", kafka.HealthCheck(cfg.Kafka.Brokers))

	// Suggestion analytics.
	var tracker analytics.Tracker
	if cfg.Analytics.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		if cfg.Analytics.BatchSize > 0 {
			batch := collector.NewBatchCollector(analyticsProducer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval, m)
			batch.Start(ctx)
			defer batch.Close()
			tracker = batch
		} else {
			single := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize, m)
			single.Start(ctx)
			defer single.Close()
			tracker = single
		}
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents, "batch_size", cfg.Analytics.BatchSize)
	}

	svc := suggest.NewService(source, ranker.WeightsFromConfig(cfg.Ranking), cfg.Suggest)

	mux := http.NewServeMux()
	suggesthandler.New(svc, suggestionCache, tracker, m).Register(mux)
	if repo != nil {
		noteshandler.New(repo, notePublisher, invalidator, m).Register(mux)
	} else {
		slog.Info("notes API disabled, file backend is read-only")
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		defer limiter.Close()
		chain = ratelimit.Middleware(limiter, m)(chain)
	}
	chain = middleware.Owner(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = tracing.Middleware(cfg.Server.SlowRequest)(chain)
	chain = middleware.RequestID(chain)

	root := http.NewServeMux()
	root.HandleFunc("GET /health/live", checker.LiveHandler())
	root.HandleFunc("GET /health/ready", checker.ReadyHandler())
	root.Handle("/", chain)

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
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

	slog.Info("suggestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("suggestion service stopped")
}
