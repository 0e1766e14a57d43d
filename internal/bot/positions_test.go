package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
	"github.com/rovshanmuradov/lp-monitor/internal/storage/memory"
)

type initErrProvider struct {
	fakeProvider
}

func (initErrProvider) GetInitData(context.Context, int64) (domain.PositionInitData, error) {
	return domain.PositionInitData{}, domain.ErrDataUnavailable
}

func TestPositionManagerAdd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	provider := outOfRangeProvider()
	provider.init.Token0Symbol = "WETH"
	provider.init.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	m := NewPositionManager(store, providerMap{42161: provider}, zaptest.NewLogger(t))

	pos, err := m.Add(ctx, 795484, 42161)
	require.NoError(t, err)
	assert.Equal(t, int64(42161), pos.ChainID)
	assert.Equal(t, "WETH", pos.Token0Symbol)
	assert.Equal(t, provider.init.CreatedAt, pos.CreatedAt)

	_, err = m.Add(ctx, 795484, 42161)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = m.Add(ctx, 1, 10)
	assert.Error(t, err, "unknown chain")
}

func TestPositionManagerAddProviderFailure(t *testing.T) {
	m := NewPositionManager(memory.NewStore(), providerMap{1: &initErrProvider{}}, zaptest.NewLogger(t))

	_, err := m.Add(context.Background(), 5, 1)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	positions, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestPositionManagerMuteAndRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := NewPositionManager(store, providerMap{}, zaptest.NewLogger(t))
	require.NoError(t, store.SavePosition(ctx, domain.Position{ID: 3, ChainID: 1}, outOfRangeProvider().init))

	require.NoError(t, m.SetMuted(ctx, 3, true))
	pos, err := store.GetPosition(ctx, 3)
	require.NoError(t, err)
	assert.True(t, pos.Muted)

	require.NoError(t, m.Remove(ctx, 3))
	assert.ErrorIs(t, m.Remove(ctx, 3), storage.ErrNotFound)
	assert.ErrorIs(t, m.SetMuted(ctx, 3, false), storage.ErrNotFound)
}
