package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"veritas/internal/adapters/ai"
	"veritas/internal/adapters/clickhouse"
	"veritas/internal/adapters/config"
	"veritas/internal/adapters/errors/noop"
	"veritas/internal/adapters/errors/sentry"
	kafkaadapter "veritas/internal/adapters/kafka"
	"veritas/internal/adapters/postgres"
	redisadapter "veritas/internal/adapters/redis"
	"veritas/internal/adapters/search"
	"veritas/internal/api"
	"veritas/internal/api/health"
	"veritas/internal/domain/claim"
	"veritas/internal/domain/evidence"
	"veritas/internal/domain/resolution"
	"veritas/internal/events"
	"veritas/internal/metrics"
	chrepo "veritas/internal/repository/clickhouse"
	pgrepo "veritas/internal/repository/postgres"
	redisrepo "veritas/internal/repository/redis"
	disputesvc "veritas/internal/services/dispute"
	evidencesvc "veritas/internal/services/evidence"
	resolutionsvc "veritas/internal/services/resolution"
	"veritas/internal/signals"
	"veritas/internal/workers"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	redisClient, err := redisadapter.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	producer := kafkaadapter.NewProducer(kafkaadapter.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	defer producer.Close()

	// Repositories
	claimRepo := pgrepo.NewClaimRepository(pgClient.DB())
	evidenceRepo := pgrepo.NewEvidenceRepository(pgClient.DB())
	disputeRepo := pgrepo.NewDisputeRepository(pgClient.DB())
	stakeRepo := pgrepo.NewStakeRepository(pgClient.DB())
	auditRepo := chrepo.NewAuditRepository(chClient.Conn())
	analysisCache := redisrepo.NewAnalysisCache(redisClient.Client(), cfg.Resolution.AnalysisCacheTTL)

	hub := api.NewEventHub()
	publisher := events.NewPublisher(producer, hub)

	// Signal sources
	scorer := evidence.NewScorer(cfg.Resolution.YoungIdentityDays, cfg.Resolution.YoungIdentityShare)
	searcher := search.NewWikipediaSearcher(cfg.AI.RequestTimeout, cfg.App.Name+"/"+version)
	chatProvider := ai.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.RequestTimeout, cfg.AI.RateLimitRPM)
	analyzer := signals.NewLLMAnalyzer(searcher, chatProvider, cfg.AI.Model)

	sources := []resolution.Source{
		signals.NewMarketSource(stakeRepo),
		signals.NewEvidenceSource(evidenceRepo, scorer),
		signals.NewExternalSource(analyzer, analysisCache),
	}

	// Aggregation and lifecycle
	selector := resolution.NewSelector(cfg.Resolution.ConsensusHigh, cfg.Resolution.ConsensusLow)
	aggregator := resolution.NewAggregator(selector, cfg.Resolution.ManipulationGap, cfg.Resolution.MinEvidenceVolume)
	machine := claim.NewMachine(claim.Rules{
		DisputeWindow:     cfg.Resolution.DisputeWindow,
		MaxEvidencePeriod: cfg.Resolution.MaxEvidencePeriod,
		MinConfidence:     decimal.NewFromFloat(cfg.Resolution.MinConfidence),
		AutoResolveFloor:  decimal.NewFromFloat(cfg.Resolution.AutoResolveFloor),
	})

	resolutionService := resolutionsvc.NewService(
		claimRepo, stakeRepo, disputeRepo,
		sources, aggregator, machine, auditRepo, publisher,
		resolutionsvc.Settings{
			SignalTimeout:      cfg.Resolution.SignalTimeout,
			MaxTransitionTries: cfg.Resolution.MaxTransitionTries,
			MaxEvidencePeriod:  cfg.Resolution.MaxEvidencePeriod,
		},
	)
	evidenceService := evidencesvc.NewService(evidenceRepo, scorer, publisher)
	disputeService := disputesvc.NewService(disputeRepo, claimRepo, publisher)

	// Workers
	registry := workers.NewRegistry()
	scheduler := workers.NewScheduler()

	workerList := []workers.WorkerWithHealth{
		workers.NewExpiryWorker(claimRepo, resolutionService,
			cfg.Workers.ExpiryInterval, cfg.Workers.MaxConcurrency, cfg.Workers.ExpiryEnabled),
		workers.NewDisputeWindowWorker(claimRepo, resolutionService,
			cfg.Workers.DisputeWindowInterval, cfg.Workers.MaxConcurrency, cfg.Workers.DisputeWindowEnabled),
		workers.NewRefundWorker(claimRepo, resolutionService,
			cfg.Workers.RefundInterval, cfg.Resolution.MaxEvidencePeriod,
			cfg.Workers.MaxConcurrency, cfg.Workers.RefundEnabled),
	}
	for _, w := range workerList {
		if err := registry.Register(w); err != nil {
			log.Fatalf("Failed to register worker %s: %v", w.Name(), err)
		}
		scheduler.RegisterWorker(w)
	}

	// Custom DB-backed metrics
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(log, pgClient.DB(), chClient.Conn()))

	// HTTP API
	healthHandler := health.New(log, pgClient.DB(), chClient.Conn(), redisClient.Client(), registry, cfg.App.Name, version)
	handlers := api.NewHandlers(resolutionService, evidenceService, disputeService)
	server := api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler, handlers, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, server, hub, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown waits for a shutdown signal, then stops the scheduler, the
// HTTP server and the error tracker in order.
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	server *api.Server,
	hub *api.EventHub,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case <-ctx.Done():
		log.Info("Shutting down after context cancellation")
	}

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler shutdown: %v", err)
	}

	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	cancel()

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
