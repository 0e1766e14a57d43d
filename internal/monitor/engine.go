// internal/monitor/engine.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/notify"
	"github.com/rovshanmuradov/lp-monitor/internal/utils/metrics"
)

const day = 24 * time.Hour

// EngineConfig holds the alert thresholds.
type EngineConfig struct {
	AgeThresholdDays   int
	ProfitThresholdPct float64
}

// DefaultEngineConfig returns the stock thresholds: 10 days and 20 percent.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AgeThresholdDays:   10,
		ProfitThresholdPct: 20,
	}
}

// Input is everything one evaluation needs. InitData is nil when the
// position baseline could not be loaded.
type Input struct {
	PositionID int64
	Snapshot   domain.PositionSnapshot
	InitData   *domain.PositionInitData
	Rates      domain.Rates
	Now        time.Time
	Muted      bool
}

// Engine runs the alert checks for a position snapshot and delivers every
// event the tracker lets through.
type Engine struct {
	cfg      EngineConfig
	tracker  *AlertTracker
	notifier notify.Notifier
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewEngine creates an engine. A nil notifier discards messages and a nil
// collector disables metrics.
func NewEngine(cfg EngineConfig, tracker *AlertTracker, notifier notify.Notifier, logger *zap.Logger, collector *metrics.Collector) *Engine {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger.Named("engine"),
		metrics:  collector,
	}
}

// Evaluate runs the out-of-bounds, age, P&L and impermanent loss checks.
//
// Events are returned even when err is non-nil: err joins the conditions
// that made some checks skip (ErrMissingBaseline, ErrDivisionDegenerate)
// and any delivery failures (ErrDeliveryFailed).
func (e *Engine) Evaluate(ctx context.Context, in Input) ([]domain.AlertEvent, error) {
	var (
		events []domain.AlertEvent
		errs   []error
	)

	logger := e.logger.With(zap.Int64("position_id", in.PositionID))

	emit := func(kind domain.AlertKind, message string, value float64) {
		if !e.tracker.ShouldTrigger(in.PositionID, kind, in.Now) {
			logger.Debug("Alert suppressed by cooldown", zap.String("alert_kind", kind.String()))
			return
		}
		event, err := e.deliver(ctx, in, domain.NewAlertEvent(in.PositionID, kind, message, value, in.Now))
		if err != nil {
			errs = append(errs, err)
		}
		events = append(events, event)
	}

	snap := in.Snapshot
	if !snap.InRange() {
		emit(domain.AlertOutOfBounds,
			fmt.Sprintf("Position %d is out of limits: Left: %d, Right: %d, Curr: %d",
				in.PositionID, snap.TickLeft, snap.TickRight, snap.TickCurr),
			float64(snap.TickCurr))
	}

	if in.InitData == nil {
		logger.Warn("No baseline for position, only range check performed")
		errs = append(errs, fmt.Errorf("position %d: %w", in.PositionID, domain.ErrMissingBaseline))
		return events, errors.Join(errs...)
	}
	init := *in.InitData

	ageDays := int(in.Now.Sub(init.CreatedAt) / day)
	if ageDays > e.cfg.AgeThresholdDays {
		emit(domain.AlertOldPosition,
			fmt.Sprintf("Position %d > %d days old: %d", in.PositionID, e.cfg.AgeThresholdDays, ageDays),
			float64(ageDays))
	}

	totalValueUSD := snap.TotalToken0()*in.Rates.Token0USD + snap.TotalToken1()*in.Rates.Token1USD
	e.metrics.UpdatePositionValue(strconv.FormatInt(in.PositionID, 10), totalValueUSD)

	initValueUSD := init.InitValueUSD()
	holdValueUSD := init.HoldValueUSD(in.Rates)
	if totalValueUSD == 0 || !finite(totalValueUSD, initValueUSD, holdValueUSD) {
		logger.Warn("Position value is zero or out of range, percentage checks skipped",
			zap.Float64("value_usd", totalValueUSD))
		errs = append(errs, fmt.Errorf("position %d: %w", in.PositionID, domain.ErrDivisionDegenerate))
		return events, errors.Join(errs...)
	}

	pnlPct := (totalValueUSD - initValueUSD) / totalValueUSD * 100
	ilPct := (totalValueUSD - holdValueUSD) / totalValueUSD * 100
	if !finite(pnlPct, ilPct) {
		logger.Warn("Percentage overflow, percentage checks skipped",
			zap.Float64("value_usd", totalValueUSD))
		errs = append(errs, fmt.Errorf("position %d: %w", in.PositionID, domain.ErrDivisionDegenerate))
		return events, errors.Join(errs...)
	}

	pnl := roundPercent(pnlPct)
	if pnl.GreaterThanOrEqual(decimal.NewFromFloat(e.cfg.ProfitThresholdPct)) {
		emit(domain.AlertPnL,
			fmt.Sprintf("Position %d in high USD profit: %s%%", in.PositionID, pnl.StringFixed(2)),
			pnl.InexactFloat64())
	}

	if totalValueUSD < holdValueUSD {
		il := roundPercent(ilPct)
		emit(domain.AlertImpermanentLoss,
			fmt.Sprintf("Position %d is currently at impermanent loss: %s%%", in.PositionID, il.StringFixed(2)),
			il.InexactFloat64())
	}

	return events, errors.Join(errs...)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// roundPercent rounds a finite percentage to 2 decimals, half away from
// zero, using the exact binary value of v rather than its shortest decimal
// form: 1.005 is stored as 1.00499... and rounds to 1.00.
func roundPercent(v float64) decimal.Decimal {
	r := new(big.Rat).SetFloat64(v)
	r.Mul(r, big.NewRat(100, 1))

	q, m := new(big.Int).QuoRem(new(big.Int).Abs(r.Num()), r.Denom(), new(big.Int))
	if m.Lsh(m, 1).Cmp(r.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if r.Sign() < 0 {
		q.Neg(q)
	}
	return decimal.NewFromBigInt(q, -2)
}

// deliver records and sends one event. The tracker has already recorded the
// trigger, so a failed send is not retried in this cycle.
func (e *Engine) deliver(ctx context.Context, in Input, event domain.AlertEvent) (domain.AlertEvent, error) {
	kind := event.Kind.String()
	e.metrics.RecordAlert(kind)

	e.logger.Info("Alert triggered",
		zap.Int64("position_id", event.PositionID),
		zap.String("alert_kind", kind),
		zap.String("message", event.Message),
		zap.Bool("muted", in.Muted))

	if in.Muted {
		return event, nil
	}

	err := e.notifier.Send(ctx, notify.Message{
		PositionID: event.PositionID,
		Kind:       kind,
		Title:      event.Title,
		Text:       event.Message,
		Level:      event.Kind.Level(),
		Timestamp:  event.Timestamp,
	})
	if err != nil {
		e.metrics.RecordDeliveryFailure(kind)
		e.logger.Error("Failed to deliver alert",
			zap.Object("event", event),
			zap.Error(err))
		if !errors.Is(err, domain.ErrDeliveryFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
		}
		return event, fmt.Errorf("position %d %s: %w", event.PositionID, kind, err)
	}

	event.Delivered = true
	return event, nil
}
