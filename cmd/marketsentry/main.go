package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
	"github.com/marketsentry/marketsentry/internal/handlers"
	"github.com/marketsentry/marketsentry/internal/interfaces"
	"github.com/marketsentry/marketsentry/internal/services/dedup"
	"github.com/marketsentry/marketsentry/internal/services/events"
	"github.com/marketsentry/marketsentry/internal/services/feeds"
	"github.com/marketsentry/marketsentry/internal/services/ingest"
	"github.com/marketsentry/marketsentry/internal/services/rating"
	"github.com/marketsentry/marketsentry/internal/services/scheduler"
	"github.com/marketsentry/marketsentry/internal/services/sentiment"
	"github.com/marketsentry/marketsentry/internal/services/signals"
	"github.com/marketsentry/marketsentry/internal/services/stream"
	badgerstore "github.com/marketsentry/marketsentry/internal/storage/badger"
)

const retentionWindow = 24 * time.Hour

var (
	configFile  = flag.String("config", "", "Configuration file path")
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")

	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("MarketSentry version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	path := *configFile
	if path == "" {
		if _, err := os.Stat("marketsentry.toml"); err == nil {
			path = "marketsentry.toml"
		}
	}

	var err error
	config, err = common.LoadFromFile(path)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Str("path", path).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", path).
		Str("environment", config.Environment).
		Int("port", config.Server.Port).
		Int("sources", len(config.Feeds.Sources)).
		Int("symbols", len(config.Symbols)).
		Msg("Application configuration loaded")

	// Storage
	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
		os.Exit(1)
	}
	defer db.Close()

	newsStorage := badgerstore.NewNewsStorage(db, logger)
	snapshotRepo := badgerstore.NewSnapshotStorage(db, logger)

	// Services
	eventService := events.NewService(logger)
	defer eventService.Close()

	// Audit-log every bus event so publishes are observable even with no
	// other consumer attached.
	for _, eventType := range []interfaces.EventType{
		interfaces.EventIngestCompleted,
		interfaces.EventSentimentUpdated,
		interfaces.EventSignalGenerated,
		interfaces.EventHaltChanged,
	} {
		et := eventType
		if err := eventService.Subscribe(et, func(ctx context.Context, event interfaces.Event) error {
			logger.Debug().Str("event_type", string(et)).Msg("Bus event published")
			return nil
		}); err != nil {
			logger.Fatal().Err(err).Str("event_type", string(et)).Msg("Failed to subscribe event handler")
			os.Exit(1)
		}
	}

	hub := stream.NewHub(logger)
	ring := events.NewRing(config.Events.RingCapacity)
	ratings := rating.NewBook()

	feedService, err := feeds.NewService(config.Feeds, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize feed service")
		os.Exit(1)
	}

	// No embedder or vector index configured: dedup degrades to
	// exact-hash-only, which is a normal operating mode.
	dedupService := dedup.NewService(newsStorage, nil, nil, config.Dedup, logger)

	aggregator := sentiment.NewAggregator(config.Sentiment, ratings, logger)
	halt := signals.NewHaltSwitch(hub, eventService, logger)
	generator := signals.NewGenerator(config.Signals, ratings, halt, logger)
	feedback := signals.NewFeedback(generator, ratings, logger)

	ingestService := ingest.NewService(config, feedService, aggregator, dedupService, newsStorage, snapshotRepo, ring, eventService, hub, logger)
	pipeline := ingest.NewSignalPipeline(config, ingestService, aggregator, generator, eventService, hub, logger)

	// Scheduled jobs
	sched := scheduler.NewService(logger)

	registerJob(sched, "ingest", config.Schedules.Ingest, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := ingestService.RunCycle(ctx); err != nil {
			return err
		}
		pipeline.Run(ctx, signals.MarketContext{})
		return nil
	})
	registerJob(sched, "probe", config.Schedules.Probe, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		feedService.ProbeAll(ctx)
		return nil
	})
	registerJob(sched, "cache_clear", config.Schedules.CacheClear, func() error {
		feedService.Cache().Clear()
		return nil
	})
	registerJob(sched, "prune", config.Schedules.Prune, func() error {
		feedback.Prune(retentionWindow)
		removed, err := ingestService.PruneDocuments(retentionWindow)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info().Int("removed", removed).Msg("Pruned stored news documents")
		}
		return nil
	})

	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}
	defer sched.Stop()

	// HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)

	api := handlers.NewAPIHandler(config, ingestService, feedService, feedback, halt, ratings, ring, sched, logger)
	api.Register(mux)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Run the first ingest cycle immediately rather than waiting for the
	// first scheduled tick.
	go func() {
		if err := sched.TriggerJob("ingest"); err != nil {
			logger.Warn().Err(err).Msg("Initial ingest trigger failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("MarketSentry stopped")
}

func registerJob(sched *scheduler.Service, name, schedule string, handler func() error) {
	if err := sched.RegisterJob(name, schedule, handler); err != nil {
		logger.Fatal().Err(err).Str("job_name", name).Msg("Failed to register scheduled job")
		os.Exit(1)
	}
}
