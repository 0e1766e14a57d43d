package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/notify"
	"github.com/rovshanmuradov/lp-monitor/internal/utils/metrics"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var evalNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// neutralInput builds an in-range, fresh position whose current value equals
// both the deposit value and the hold value.
func neutralInput(totalUSD, initUSD float64) Input {
	return Input{
		PositionID: 795484,
		Snapshot: domain.PositionSnapshot{
			TickCurr:        70,
			TickLeft:        50,
			TickRight:       90,
			LiquidityToken0: totalUSD,
		},
		InitData: &domain.PositionInitData{
			InitValueToken0:   initUSD,
			InitToken0USDRate: 1,
			InitToken1USDRate: 1,
			CreatedAt:         evalNow,
		},
		Rates: domain.Rates{Token0USD: 1, Token1USD: 1},
		Now:   evalNow,
	}
}

func newTestEngine(t *testing.T, n notify.Notifier) (*Engine, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector()
	engine := NewEngine(DefaultEngineConfig(), NewAlertTracker(time.Hour), n, zaptest.NewLogger(t), collector)
	return engine, collector
}

func kinds(events []domain.AlertEvent) []domain.AlertKind {
	out := make([]domain.AlertKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestEvaluateNeutralPositionProducesNothing(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	events, err := engine.Evaluate(context.Background(), neutralInput(1000, 1000))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvaluateOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		curr int
		want bool
	}{
		{name: "at left bound", curr: 50, want: true},
		{name: "at right bound", curr: 90, want: true},
		{name: "below range", curr: 10, want: true},
		{name: "above range", curr: 100, want: true},
		{name: "just inside left", curr: 51, want: false},
		{name: "just inside right", curr: 89, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t, nil)
			in := neutralInput(1000, 1000)
			in.Snapshot.TickCurr = tt.curr

			events, err := engine.Evaluate(context.Background(), in)
			require.NoError(t, err)
			if tt.want {
				require.Len(t, events, 1)
				assert.Equal(t, domain.AlertOutOfBounds, events[0].Kind)
				assert.Equal(t, "🚨 Reposition 🚨", events[0].Title)
				assert.Equal(t, float64(tt.curr), events[0].Value)
			} else {
				assert.Empty(t, events)
			}
		})
	}
}

func TestEvaluateAgeBoundary(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	in := neutralInput(1000, 1000)
	in.InitData.CreatedAt = evalNow.Add(-10*day - 23*time.Hour)
	events, err := engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events, "10 full days must not trigger")

	in.InitData.CreatedAt = evalNow.Add(-11 * day)
	events, err = engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AlertOldPosition, events[0].Kind)
	assert.Equal(t, "Position 795484 > 10 days old: 11", events[0].Message)
	assert.Equal(t, float64(11), events[0].Value)
}

func TestEvaluatePnLBoundary(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	events, err := engine.Evaluate(context.Background(), neutralInput(1000, 800.1))
	require.NoError(t, err)
	assert.Empty(t, events, "19.99 percent must not trigger")

	events, err = engine.Evaluate(context.Background(), neutralInput(1000, 800))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AlertPnL, events[0].Kind)
	assert.Equal(t, "Position 795484 in high USD profit: 20.00%", events[0].Message)
	assert.Equal(t, "💵 Cash out 💵", events[0].Title)
}

func TestEvaluatePnLRoundsBinaryValue(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	// (1000-800.0500000000001)/1000*100 is 19.994999999999994
	events, err := engine.Evaluate(context.Background(), neutralInput(1000, 800.0500000000001))
	require.NoError(t, err)
	assert.Empty(t, events)

	// (1000-800.05)/1000*100 is 19.995000000000005
	events, err = engine.Evaluate(context.Background(), neutralInput(1000, 800.05))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Position 795484 in high USD profit: 20.00%", events[0].Message)
}

func TestRoundPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{19.989999999999995, "19.99"},
		{20, "20.00"},
		{16.666666666666664, "16.67"},
		{-11.11111111111111, "-11.11"},
		{1.005, "1.00"},
		{0.125, "0.13"},
		{-0.125, "-0.13"},
		{-0.001, "0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundPercent(tt.in).StringFixed(2), "%v", tt.in)
	}
}

func TestEvaluateOverflowingValueIsDegenerate(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	in := neutralInput(1e200, 1000)
	in.Rates.Token0USD = 1e200
	in.Snapshot.TickCurr = 90
	require.NoError(t, in.Snapshot.Validate())
	require.NoError(t, in.Rates.Validate())
	require.NoError(t, in.InitData.Validate())

	var (
		events []domain.AlertEvent
		err    error
	)
	require.NotPanics(t, func() {
		events, err = engine.Evaluate(context.Background(), in)
	})
	require.ErrorIs(t, err, domain.ErrDivisionDegenerate)
	assert.Equal(t, []domain.AlertKind{domain.AlertOutOfBounds}, kinds(events))
}

func TestEvaluateImpermanentLossIsStrict(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	// deposit was worth 1000 at mint, token0 now trades at the same rate:
	// hold value equals current value
	in := neutralInput(1000, 1000)
	events, err := engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)

	in.Snapshot.LiquidityToken0 = 900
	events, err = engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AlertImpermanentLoss, events[0].Kind)
	assert.Equal(t, "Position 795484 is currently at impermanent loss: -11.11%", events[0].Message)
	assert.InDelta(t, -11.11, events[0].Value, 1e-9)
}

func TestEvaluateIsIdempotentWithinCooldown(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	in := neutralInput(1300, 1000)
	in.Snapshot.TickCurr = 90
	in.InitData.CreatedAt = evalNow.Add(-20 * day)

	events, err := engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.AlertKind{domain.AlertOutOfBounds, domain.AlertOldPosition, domain.AlertPnL}, kinds(events))

	in.Now = in.Now.Add(time.Minute)
	events, err = engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvaluateScenarios(t *testing.T) {
	t.Run("out of bounds only", func(t *testing.T) {
		engine, _ := newTestEngine(t, nil)
		in := neutralInput(1000, 1000)
		in.Snapshot.TickCurr, in.Snapshot.TickLeft, in.Snapshot.TickRight = 100, 50, 90

		events, err := engine.Evaluate(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Position 795484 is out of limits: Left: 50, Right: 90, Curr: 100", events[0].Message)
	})

	t.Run("stale position", func(t *testing.T) {
		engine, _ := newTestEngine(t, nil)
		in := neutralInput(1000, 1000)
		in.InitData.CreatedAt = evalNow.Add(-15 * day)

		events, err := engine.Evaluate(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.AlertOldPosition, events[0].Kind)
		assert.Equal(t, float64(15), events[0].Value)
	})

	t.Run("profit crosses threshold", func(t *testing.T) {
		engine, _ := newTestEngine(t, nil)

		events, err := engine.Evaluate(context.Background(), neutralInput(1200, 1000))
		require.NoError(t, err)
		assert.Empty(t, events, "16.67 percent is below the threshold")

		events, err = engine.Evaluate(context.Background(), neutralInput(1300, 1000))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Position 795484 in high USD profit: 23.08%", events[0].Message)
		assert.InDelta(t, 23.08, events[0].Value, 1e-9)

		events, err = engine.Evaluate(context.Background(), neutralInput(1300, 1000))
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestEvaluateMissingBaseline(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	in := neutralInput(1000, 1000)
	in.InitData = nil
	in.Snapshot.TickCurr = 50

	events, err := engine.Evaluate(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrMissingBaseline)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AlertOutOfBounds, events[0].Kind)
}

func TestEvaluateZeroValueSkipsPercentages(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	in := neutralInput(0, 1000)
	in.InitData.CreatedAt = evalNow.Add(-30 * day)

	events, err := engine.Evaluate(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrDivisionDegenerate)
	assert.Equal(t, []domain.AlertKind{domain.AlertOldPosition}, kinds(events))
}

func TestEvaluateDeliversEveryEvent(t *testing.T) {
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.MatchedBy(func(msg notify.Message) bool {
		return msg.PositionID == 795484 && msg.Kind == "out_of_bounds" && msg.Level == domain.LevelCritical
	})).Return(nil).Once()

	engine, collector := newTestEngine(t, n)
	in := neutralInput(1000, 1000)
	in.Snapshot.TickCurr = 0

	events, err := engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Delivered)
	assert.NotEmpty(t, events[0].ID)
	n.AssertExpectations(t)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestEvaluateDeliveryFailureKeepsAlertFired(t *testing.T) {
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	engine, _ := newTestEngine(t, n)
	in := neutralInput(1000, 1000)
	in.Snapshot.TickCurr = 0

	events, err := engine.Evaluate(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrDeliveryFailed)
	require.Len(t, events, 1)
	assert.False(t, events[0].Delivered)

	// no retry inside the cooldown window
	events, err = engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events)
	n.AssertExpectations(t)
}

func TestEvaluateMutedPositionSkipsDelivery(t *testing.T) {
	n := &mockNotifier{}
	engine, _ := newTestEngine(t, n)

	in := neutralInput(1000, 1000)
	in.Snapshot.TickCurr = 0
	in.Muted = true

	events, err := engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Delivered)
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	in.Muted = false
	events, err = engine.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, events, "muted triggers still start the cooldown")
}
