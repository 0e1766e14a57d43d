// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/lp-monitor/internal/chain"
	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/monitor"
	"github.com/rovshanmuradov/lp-monitor/internal/notify"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
	"github.com/rovshanmuradov/lp-monitor/internal/utils/metrics"
)

// ErrNoPositions is returned by Run when there is nothing to monitor.
var ErrNoPositions = errors.New("no positions configured")

// errStoreUnavailable marks an evaluation degraded by a store failure rather
// than by missing data.
var errStoreUnavailable = errors.New("store unavailable")

// errPositionRemoved stops the loop of a position deleted while running.
var errPositionRemoved = errors.New("position removed")

const startupTitle = "🤖🦄 Startup 🤖🦄"

// ProviderSource resolves the data provider of a chain.
type ProviderSource interface {
	Get(chainID int64) (chain.Provider, error)
}

type RunnerConfig struct {
	PollInterval      time.Duration
	EvaluationTimeout time.Duration
}

// Runner drives one polling loop per monitored position.
type Runner struct {
	cfg       RunnerConfig
	logger    *zap.Logger
	store     storage.HistoryStore
	providers ProviderSource
	engine    *monitor.Engine
	tracker   *monitor.AlertTracker
	notifier  notify.Notifier
	metrics   *metrics.Collector
	now       func() time.Time
}

// Deps groups the collaborators of a Runner.
type Deps struct {
	Store     storage.HistoryStore
	Providers ProviderSource
	Engine    *monitor.Engine
	Tracker   *monitor.AlertTracker
	Notifier  notify.Notifier
	Metrics   *metrics.Collector
}

func NewRunner(cfg RunnerConfig, deps Deps, logger *zap.Logger) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.EvaluationTimeout <= 0 {
		cfg.EvaluationTimeout = 30 * time.Second
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Runner{
		cfg:       cfg,
		logger:    logger.Named("runner"),
		store:     deps.Store,
		providers: deps.Providers,
		engine:    deps.Engine,
		tracker:   deps.Tracker,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

type job struct {
	position domain.Position
	provider chain.Provider
}

// Run loads the positions, announces startup and monitors every position
// until ctx is cancelled. An evaluation already in flight when ctx is
// cancelled runs to completion.
func (r *Runner) Run(ctx context.Context) error {
	positions, err := r.store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	if len(positions) == 0 {
		return ErrNoPositions
	}

	jobs := make([]job, 0, len(positions))
	for _, pos := range positions {
		provider, err := r.providers.Get(pos.ChainID)
		if err != nil {
			r.logger.Error("Skipping position without provider",
				zap.Int64("position_id", pos.ID),
				zap.Int64("chain_id", pos.ChainID),
				zap.Error(err))
			continue
		}
		jobs = append(jobs, job{position: pos, provider: provider})
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: none of %d positions has a configured chain", ErrNoPositions, len(positions))
	}

	r.logger.Info(fmt.Sprintf("📋 Found %d positions", len(jobs)))
	r.announce(ctx, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			r.monitorPosition(gctx, j)
			return nil
		})
	}

	err = g.Wait()
	r.logger.Info("✅ All position loops stopped")
	return err
}

func (r *Runner) announce(ctx context.Context, n int) {
	err := r.notifier.Send(ctx, notify.Message{
		Title:     startupTitle,
		Text:      fmt.Sprintf("LP Monitor is up and running on %d positions", n),
		Level:     domain.LevelInfo,
		Timestamp: r.now().UTC(),
	})
	if err != nil {
		r.logger.Warn("Failed to send startup notice", zap.Error(err))
	}
}

// monitorPosition evaluates a position immediately and then on every tick.
// Evaluations of one position never overlap.
func (r *Runner) monitorPosition(ctx context.Context, j job) {
	logger := r.logger.With(
		zap.Int64("position_id", j.position.ID),
		zap.Int64("chain_id", j.position.ChainID))
	logger.Info("🚀 Monitoring started", zap.Duration("interval", r.cfg.PollInterval))

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := r.evaluateOnce(ctx, j); errors.Is(err, errPositionRemoved) {
			logger.Info("Position removed, monitoring stopped")
			return
		}

		select {
		case <-ctx.Done():
			logger.Info("Monitoring stopped")
			return
		case <-ticker.C:
		}
	}
}

// evaluateOnce runs one snapshot, evaluate, persist cycle. Its context is
// detached from ctx so shutdown does not interrupt a cycle half way.
func (r *Runner) evaluateOnce(ctx context.Context, j job) error {
	evalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.EvaluationTimeout)
	defer cancel()

	start := time.Now()
	pos := j.position
	logger := r.logger.With(zap.Int64("position_id", pos.ID))

	current, err := r.store.GetPosition(evalCtx, pos.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.tracker.Reset(pos.ID)
		return errPositionRemoved
	case err != nil:
		logger.Warn("Failed to refresh position, using last known state", zap.Error(err))
		current = pos
	}

	snap, err := j.provider.GetSnapshot(evalCtx, pos.ID)
	if err != nil {
		return r.skip(logger, "snapshot", err, start)
	}
	rates, err := j.provider.GetRates(evalCtx, pos.ID)
	if err != nil {
		return r.skip(logger, "rates", err, start)
	}

	var (
		baseline *domain.PositionInitData
		storeErr error
	)
	init, err := r.store.GetInitData(evalCtx, pos.ID)
	switch {
	case err == nil:
		baseline = &init
	case errors.Is(err, storage.ErrNotFound):
		logger.Warn("Position has no baseline", zap.Error(err))
	default:
		logger.Error("Failed to load baseline from store", zap.Error(err))
		r.metrics.RecordPersistFailure("baseline_load")
		storeErr = fmt.Errorf("%w: load baseline: %w", errStoreUnavailable, err)
	}

	events, evalErr := r.engine.Evaluate(evalCtx, monitor.Input{
		PositionID: pos.ID,
		Snapshot:   snap,
		InitData:   baseline,
		Rates:      rates,
		Now:        r.now(),
		Muted:      current.Muted,
	})

	evalErr = errors.Join(storeErr, evalErr)

	if err := r.store.AppendSnapshot(evalCtx, pos.ID, snap, rates); err != nil {
		logger.Error("Failed to persist snapshot", zap.Error(err))
		r.metrics.RecordPersistFailure(persistFailureReason(err))
	}

	result := evaluationResult(evalErr)
	r.metrics.RecordEvaluation(result, time.Since(start))

	if evalErr != nil {
		logger.Warn("Evaluation finished with errors",
			zap.String("result", result),
			zap.Int("alerts", len(events)),
			zap.Error(evalErr))
		return evalErr
	}
	logger.Debug("Evaluation finished",
		zap.Int("alerts", len(events)),
		zap.Uint64("block", snap.BlockNumber),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (r *Runner) skip(logger *zap.Logger, what string, err error, start time.Time) error {
	logger.Warn("Skipping evaluation, data unavailable",
		zap.String("source", what),
		zap.Error(err))
	r.metrics.RecordEvaluation("data_unavailable", time.Since(start))
	if !errors.Is(err, domain.ErrDataUnavailable) {
		err = fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	return err
}

func evaluationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, errStoreUnavailable):
		return "store_error"
	case errors.Is(err, domain.ErrMissingBaseline):
		return "missing_baseline"
	case errors.Is(err, domain.ErrDivisionDegenerate):
		return "zero_value"
	default:
		return "error"
	}
}

func persistFailureReason(err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return "not_found"
	}
	return "store_error"
}
