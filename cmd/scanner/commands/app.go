package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wonny/gapscan/internal/api"
	"github.com/wonny/gapscan/internal/api/handlers"
	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/internal/external/finviz"
	"github.com/wonny/gapscan/internal/external/polygon"
	"github.com/wonny/gapscan/internal/metrics"
	"github.com/wonny/gapscan/internal/orchestrator"
	"github.com/wonny/gapscan/internal/output"
	"github.com/wonny/gapscan/internal/session"
	"github.com/wonny/gapscan/internal/strategyconfig"
	"github.com/wonny/gapscan/pkg/config"
	"github.com/wonny/gapscan/pkg/database"
	"github.com/wonny/gapscan/pkg/httputil"
	"github.com/wonny/gapscan/pkg/logger"
	"github.com/wonny/gapscan/pkg/redis"
)

const (
	redisPrefix     = "gapscan"
	catalystTimeout = 10 * time.Second
)

// app holds every long-lived dependency of a scanner process
// ⭐ SSOT: 의존성 조립은 이 파일에서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
	clock    *session.Clock

	redis    *redis.Client
	db       *database.DB
	repo     *output.Repository
	sink     *output.Sink
	registry *prometheus.Registry
	metrics  *metrics.Recorder
	hub      *api.Hub
	engine   *orchestrator.Orchestrator
}

// loadConfig loads env config and applies global flag overrides
func loadConfig(local bool) (*config.Config, error) {
	load := config.Load
	if local {
		load = config.LoadLocal
	}

	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strategyPath != "" {
		cfg.StrategyConfigPath = strategyPath
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loadStrategy loads the strategy YAML, logs its hash and warnings and
// builds the session clock. Any failure is fatal (ErrConfig).
func loadStrategy(cfg *config.Config, log *logger.Logger) (*strategyconfig.Config, *session.Clock, error) {
	strategy, _, err := strategyconfig.Load(cfg.StrategyConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy %s: %w", cfg.StrategyConfigPath, err)
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, nil, fmt.Errorf("hash strategy: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"path":     cfg.StrategyConfigPath,
		"strategy": strategy.Meta.StrategyID,
		"version":  strategy.Meta.Version,
		"hash":     hash,
	}).Info("Strategy config loaded")

	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	clock, err := session.New(strategy)
	if err != nil {
		return nil, nil, fmt.Errorf("session clock: %w", err)
	}
	return strategy, clock, nil
}

// newLocalApp wires config, logger, strategy and the CSV sink only
func newLocalApp() (*app, error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	strategy, clock, err := loadStrategy(cfg, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		strategy: strategy,
		clock:    clock,
		sink:     output.NewSink(cfg.OutputDir, nil, log),
	}, nil
}

// newApp wires the full scanner: provider clients, shared cache, mirror,
// metrics, websocket hub and the orchestrator
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	strategy, clock, err := loadStrategy(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, strategy: strategy, clock: clock}

	// 1. Redis (optional: shared verdict cache + provider rate limit)
	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using local cache and limiter only")
		rdb = redis.NewFromRedis(nil)
	}
	a.redis = rdb

	// 2. Postgres mirror (optional)
	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.repo = output.NewRepository(db.Pool)
		if err := a.repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("Postgres mirror enabled")
	}

	// 3. Output sink
	a.sink = output.NewSink(cfg.OutputDir, a.repo, log)

	// 4. Metrics
	if cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.New(a.registry)
	}

	// 5. Provider clients
	polygonHTTP := httputil.New(log, cfg.Polygon.Timeout).
		WithLocalLimit(cfg.Polygon.RequestsPerSec).
		WithRateLimiter(redis.NewRateLimiter(rdb, redisPrefix), redis.PolygonRateLimit(cfg.Polygon.RequestsPerSec))
	provider := polygon.NewClient(polygonHTTP, cfg.Polygon.APIKey, cfg.Polygon.BaseURL, log)

	var catalyst contracts.CatalystSource
	if cfg.Finviz.Enabled {
		finvizHTTP := httputil.New(log, catalystTimeout).WithRetry(1, time.Second)
		catalyst = finviz.NewClient(finvizHTTP, cfg.Finviz.BaseURL, log)
	}

	var reporter orchestrator.TickReporter
	if a.repo != nil {
		reporter = a.repo
	}

	// 6. Live push
	a.hub = api.NewHub(log)

	// 7. Orchestrator
	engine, err := orchestrator.New(orchestrator.Deps{
		Config:         strategy,
		Clock:          clock,
		Provider:       provider,
		Picks:          a.sink,
		Watchlist:      a.sink,
		Logger:         log,
		Reference:      provider,
		Catalyst:       catalyst,
		Shared:         redis.NewCache(rdb, redisPrefix),
		Publisher:      a.hub,
		Reporter:       reporter,
		Metrics:        a.metrics,
		PersistedFinal: a.sink.FinalFor,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	a.engine = engine

	return a, nil
}

// router builds the status API over whatever this process has wired
func (a *app) router(jobs handlers.JobStats) *api.Server {
	var engine handlers.Engine
	if a.engine != nil {
		engine = a.engine
	}
	var history handlers.PickHistory
	if a.repo != nil {
		history = a.repo
	}
	var gatherer prometheus.Gatherer
	if a.registry != nil {
		gatherer = a.registry
	}

	scanner := handlers.NewScannerHandler(
		engine,
		a.sink.PickPath(),
		a.sink.WatchlistPath(),
		history,
		jobs,
		a.clock.Location(),
		a.log,
	)
	return api.New(a.cfg, a.log, api.NewRouter(scanner, a.hub, gatherer, a.log))
}

// Close releases connections
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis")
		}
	}
	a.db.Close()
}
