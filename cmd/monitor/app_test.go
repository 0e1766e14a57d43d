package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-monitor/internal/bot"
	"github.com/rovshanmuradov/lp-monitor/internal/chain"
	"github.com/rovshanmuradov/lp-monitor/internal/config"
	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/export"
	"github.com/rovshanmuradov/lp-monitor/internal/notify"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
	"github.com/rovshanmuradov/lp-monitor/internal/storage/memory"
)

func TestParseWatch(t *testing.T) {
	id, chainID, err := parseWatch("795484@42161")
	require.NoError(t, err)
	assert.Equal(t, int64(795484), id)
	assert.Equal(t, int64(42161), chainID)

	for _, bad := range []string{"795484", "x@1", "1@y", ""} {
		_, _, err := parseWatch(bad)
		assert.Error(t, err, bad)
	}
}

func TestListPrintsPositions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	require.NoError(t, store.SavePosition(context.Background(), domain.Position{ID: 12, ChainID: 1}, domain.PositionInitData{
		InitValueToken0: 1, InitToken0USDRate: 1, InitToken1USDRate: 1,
		CreatedAt:    time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Token0Symbol: "USDC", Token1Symbol: "WETH",
	}))
	a := &app{positions: bot.NewPositionManager(store, chain.NewRegistry(), logger)}

	var buf bytes.Buffer
	require.NoError(t, a.list(context.Background(), &buf))
	assert.Contains(t, buf.String(), "USDC/WETH")
	assert.Contains(t, buf.String(), "2024-03-04")
}

func TestExportHistory(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	require.NoError(t, store.SavePosition(ctx, domain.Position{ID: 5, ChainID: 1}, domain.PositionInitData{
		InitValueToken0: 1, InitToken0USDRate: 1, InitToken1USDRate: 1,
		CreatedAt: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.AppendSnapshot(ctx, 5,
		domain.PositionSnapshot{TickLeft: -10, TickCurr: 0, TickRight: 10, LiquidityToken0: 2},
		domain.Rates{Token0USD: 3, Token1USD: 1}))
	a := &app{logger: logger, store: store}

	path, err := a.exportHistory(ctx, 5, 10, export.ExportOptions{Format: export.FormatCSV, OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = a.exportHistory(ctx, 6, 10, export.ExportOptions{Format: export.FormatCSV, OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNotifierSelection(t *testing.T) {
	logger := zaptest.NewLogger(t)
	base := func() *app {
		return &app{
			cfg:      &config.Config{KafkaTopic: config.DefaultKafkaTopic},
			logger:   logger,
			shutdown: bot.NewShutdownHandler(logger, time.Second),
		}
	}

	a := base()
	n, err := a.notifier()
	require.NoError(t, err)
	assert.IsType(t, &notify.ConsoleNotifier{}, n)

	a = base()
	a.cfg.WebhookURL = "https://discord.com/api/webhooks/1/x"
	n, err = a.notifier()
	require.NoError(t, err)
	assert.IsType(t, &notify.DiscordNotifier{}, n)

	a = base()
	a.cfg.WebhookURL = "https://discord.com/api/webhooks/1/x"
	a.cfg.KafkaBrokers = []string{"localhost:9092"}
	a.cfg.ConsoleAlerts = true
	n, err = a.notifier()
	require.NoError(t, err)
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 3)
	assert.NoError(t, a.shutdown.Shutdown(context.Background()))
}
