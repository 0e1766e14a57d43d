package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/bot"
	"github.com/rovshanmuradov/lp-monitor/internal/cache"
	"github.com/rovshanmuradov/lp-monitor/internal/chain"
	"github.com/rovshanmuradov/lp-monitor/internal/config"
	"github.com/rovshanmuradov/lp-monitor/internal/export"
	"github.com/rovshanmuradov/lp-monitor/internal/monitor"
	"github.com/rovshanmuradov/lp-monitor/internal/notify"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
	"github.com/rovshanmuradov/lp-monitor/internal/storage/memory"
	"github.com/rovshanmuradov/lp-monitor/internal/storage/postgres"
	"github.com/rovshanmuradov/lp-monitor/internal/utils/logger"
	"github.com/rovshanmuradov/lp-monitor/internal/utils/metrics"
)

type app struct {
	cfg       *config.Config
	log       *logger.Logger
	logger    *zap.Logger
	metrics   *metrics.Collector
	store     storage.HistoryStore
	registry  *chain.Registry
	positions *bot.PositionManager
	shutdown  *bot.ShutdownHandler
}

func newApp(ctx context.Context, configPath string, inMemory bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		logger:   log.WithComponent("cli"),
		metrics:  metrics.NewCollector(),
		shutdown: bot.NewShutdownHandler(log.Logger, 30*time.Second),
	}
	a.shutdown.AddFunc("logger", log.Sync)

	if err := a.initStore(ctx, inMemory); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initChains(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.positions = bot.NewPositionManager(a.store, a.registry, a.logger)
	return a, nil
}

func (a *app) initStore(ctx context.Context, inMemory bool) error {
	if inMemory || a.cfg.PostgresURL == "" {
		if !inMemory {
			return errors.New("postgres_url is required (or use run --watch)")
		}
		a.logger.Warn("Running without a database, position history is not persisted")
		a.store = memory.NewStore()
		return nil
	}

	store, err := postgres.NewStorage(a.cfg.PostgresURL, a.logger)
	if err != nil {
		return err
	}
	a.shutdown.Add("postgres", store)
	if err := store.RunMigrations(ctx); err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *app) initChains(ctx context.Context) error {
	clients := make([]chain.ClientConfig, 0, len(a.cfg.Chains))
	for _, ch := range a.cfg.Chains {
		clients = append(clients, chain.ClientConfig{
			ChainID:           ch.ID,
			Endpoint:          ch.SubgraphURL,
			RequestsPerSecond: a.cfg.RequestsPerSecond,
		})
	}

	registry, err := chain.NewRegistryFromConfig(clients, a.logger, a.metrics)
	if err != nil {
		return err
	}
	a.registry = registry

	if a.cfg.RedisAddr == "" {
		return nil
	}
	rc := cache.NewRedisRateCache(cache.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
		TTL:      a.cfg.RateCacheTTL(),
	})
	if err := rc.Ping(ctx); err != nil {
		a.logger.Warn("Redis unavailable, rate cache disabled", zap.String("addr", a.cfg.RedisAddr), zap.Error(err))
		_ = rc.Close()
		return nil
	}
	a.shutdown.Add("redis", rc)
	registry.Wrap(func(chainID int64, p chain.Provider) chain.Provider {
		return chain.NewCachedRates(chainID, p, rc, a.logger)
	})
	return nil
}

func (a *app) notifier() (notify.Notifier, error) {
	var sinks notify.Multi
	if a.cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewDiscordNotifier(a.cfg.WebhookURL, a.logger))
	}
	if len(a.cfg.KafkaBrokers) > 0 {
		k, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers: a.cfg.KafkaBrokers,
			Topic:   a.cfg.KafkaTopic,
		})
		if err != nil {
			return nil, err
		}
		a.shutdown.Add("kafka", k)
		sinks = append(sinks, k)
	}
	if a.cfg.ConsoleAlerts || len(sinks) == 0 {
		sinks = append(sinks, notify.NewConsoleNotifier(os.Stdout))
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func (a *app) startMetricsServer() {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("Metrics server listening", zap.String("addr", a.cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	a.shutdown.AddFunc("metrics", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

func (a *app) run(ctx context.Context, watch []string) error {
	for _, w := range watch {
		id, chainID, err := parseWatch(w)
		if err != nil {
			return err
		}
		if _, err := a.positions.Add(ctx, id, chainID); err != nil {
			return err
		}
	}

	n, err := a.notifier()
	if err != nil {
		return err
	}
	a.startMetricsServer()

	tracker := monitor.NewAlertTracker(a.cfg.AlertCooldown())
	engine := monitor.NewEngine(monitor.EngineConfig{
		AgeThresholdDays:   a.cfg.AgeThresholdDays,
		ProfitThresholdPct: a.cfg.ProfitThresholdPct,
	}, tracker, n, a.logger, a.metrics)

	runner := bot.NewRunner(bot.RunnerConfig{
		PollInterval:      a.cfg.PollInterval(),
		EvaluationTimeout: a.cfg.EvaluationTimeout(),
	}, bot.Deps{
		Store:     a.store,
		Providers: a.registry,
		Engine:    engine,
		Tracker:   tracker,
		Notifier:  n,
		Metrics:   a.metrics,
	}, a.logger)

	a.logger.Info("Starting LP monitor",
		zap.Duration("poll_interval", a.cfg.PollInterval()),
		zap.Duration("alert_cooldown", a.cfg.AlertCooldown()),
		zap.Int64s("chains", a.registry.ChainIDs()))
	return runner.Run(ctx)
}

func (a *app) list(ctx context.Context, out io.Writer) error {
	positions, err := a.positions.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCHAIN\tPAIR\tMINTED\tMUTED")
	for _, p := range positions {
		fmt.Fprintf(w, "%d\t%d\t%s/%s\t%s\t%t\n",
			p.ID, p.ChainID, p.Token0Symbol, p.Token1Symbol,
			p.CreatedAt.Format("2006-01-02"), p.Muted)
	}
	return w.Flush()
}

func (a *app) exportHistory(ctx context.Context, positionID int64, limit int, opts export.ExportOptions) (string, error) {
	if _, err := a.store.GetPosition(ctx, positionID); err != nil {
		return "", err
	}
	records, err := a.store.ListSnapshots(ctx, positionID, limit)
	if err != nil {
		return "", fmt.Errorf("failed to load snapshots: %w", err)
	}
	return export.NewSnapshotExporter(a.logger).ExportSnapshots(positionID, records, opts)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.shutdown.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}

// parseWatch parses "<id>@<chain>".
func parseWatch(s string) (int64, int64, error) {
	idPart, chainPart, ok := strings.Cut(s, "@")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --watch value %q, want <id>@<chain>", s)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position id in %q: %w", s, err)
	}
	chainID, err := strconv.ParseInt(chainPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chain id in %q: %w", s, err)
	}
	return id, chainID, nil
}
