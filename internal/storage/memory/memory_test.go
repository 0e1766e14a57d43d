package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
)

func testInitData() domain.PositionInitData {
	return domain.PositionInitData{
		InitValueToken0:   0.5,
		InitValueToken1:   1000,
		InitToken0USDRate: 2000,
		InitToken1USDRate: 0.8,
		CreatedAt:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Token0Symbol:      "WETH",
		Token1Symbol:      "ARB",
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SavePosition(ctx, domain.Position{ID: 795484, ChainID: 42161}, testInitData()))

	pos, err := s.GetPosition(ctx, 795484)
	require.NoError(t, err)
	assert.Equal(t, int64(42161), pos.ChainID)
	assert.Equal(t, "WETH", pos.Token0Symbol)
	assert.Equal(t, testInitData().CreatedAt, pos.CreatedAt)

	init, err := s.GetInitData(ctx, 795484)
	require.NoError(t, err)
	assert.Equal(t, testInitData(), init)
}

func TestStoreSaveDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SavePosition(ctx, domain.Position{ID: 1, ChainID: 1}, testInitData()))
	err := s.SavePosition(ctx, domain.Position{ID: 1, ChainID: 1}, testInitData())
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestStoreSaveRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.SavePosition(ctx, domain.Position{ID: 0, ChainID: 1}, testInitData())
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	bad := testInitData()
	bad.InitToken0USDRate = -1
	err = s.SavePosition(ctx, domain.Position{ID: 2, ChainID: 1}, bad)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrInvalidInitData)
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.GetPosition(ctx, 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetInitData(ctx, 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.SetMuted(ctx, 9, true), storage.ErrNotFound)
	assert.ErrorIs(t, s.DeletePosition(ctx, 9), storage.ErrNotFound)
	assert.ErrorIs(t, s.AppendSnapshot(ctx, 9, domain.PositionSnapshot{}, domain.Rates{}), storage.ErrNotFound)
}

func TestStoreMuteAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SavePosition(ctx, domain.Position{ID: 3, ChainID: 1}, testInitData()))
	require.NoError(t, s.SavePosition(ctx, domain.Position{ID: 1, ChainID: 1}, testInitData()))
	require.NoError(t, s.SetMuted(ctx, 3, true))

	positions, err := s.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, int64(1), positions[0].ID)
	assert.False(t, positions[0].Muted)
	assert.True(t, positions[1].Muted)
}

func TestStoreSnapshotsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SavePosition(ctx, domain.Position{ID: 5, ChainID: 1}, testInitData()))

	for block := uint64(1); block <= 3; block++ {
		snap := domain.PositionSnapshot{TickLeft: -10, TickRight: 10, BlockNumber: block}
		require.NoError(t, s.AppendSnapshot(ctx, 5, snap, domain.Rates{Token0USD: 1}))
	}

	records, err := s.ListSnapshots(ctx, 5, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(3), records[0].Snapshot.BlockNumber)
	assert.Equal(t, uint64(2), records[1].Snapshot.BlockNumber)

	all, err := s.ListSnapshots(ctx, 5, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.DeletePosition(ctx, 5))
	all, err = s.ListSnapshots(ctx, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	s := NewStoreWithLimit(3)
	require.NoError(t, s.SavePosition(ctx, domain.Position{ID: 5, ChainID: 1}, testInitData()))

	for block := uint64(1); block <= 10; block++ {
		snap := domain.PositionSnapshot{TickLeft: -10, TickRight: 10, BlockNumber: block}
		require.NoError(t, s.AppendSnapshot(ctx, 5, snap, domain.Rates{Token0USD: 1}))
	}

	records, err := s.ListSnapshots(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(10), records[0].Snapshot.BlockNumber)
	assert.Equal(t, uint64(8), records[2].Snapshot.BlockNumber)

	assert.Equal(t, DefaultHistoryLimit, NewStoreWithLimit(0).historyLimit)
}
