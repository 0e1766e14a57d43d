// internal/bot/positions.go
package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
)

// PositionManager handles the operator commands on the position set.
type PositionManager struct {
	store     storage.HistoryStore
	providers ProviderSource
	logger    *zap.Logger
}

func NewPositionManager(store storage.HistoryStore, providers ProviderSource, logger *zap.Logger) *PositionManager {
	return &PositionManager{
		store:     store,
		providers: providers,
		logger:    logger.Named("positions"),
	}
}

// Add fetches the mint baseline of a position from its chain and starts
// tracking it.
func (m *PositionManager) Add(ctx context.Context, positionID, chainID int64) (domain.Position, error) {
	if _, err := m.store.GetPosition(ctx, positionID); err == nil {
		return domain.Position{}, fmt.Errorf("position %d: %w", positionID, storage.ErrDuplicateKey)
	}

	provider, err := m.providers.Get(chainID)
	if err != nil {
		return domain.Position{}, err
	}

	init, err := provider.GetInitData(ctx, positionID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("could not retrieve initial data of position %d: %w", positionID, err)
	}

	pos := domain.Position{ID: positionID, ChainID: chainID}
	if err := m.store.SavePosition(ctx, pos, init); err != nil {
		return domain.Position{}, err
	}

	m.logger.Info("Position added",
		zap.Int64("position_id", positionID),
		zap.Int64("chain_id", chainID),
		zap.Time("minted_at", init.CreatedAt),
		zap.Float64("init_value_usd", init.InitValueUSD()))
	return m.store.GetPosition(ctx, positionID)
}

// SetMuted silences or re-enables notifications of a position. Running
// monitors pick the change up on their next cycle.
func (m *PositionManager) SetMuted(ctx context.Context, positionID int64, muted bool) error {
	if err := m.store.SetMuted(ctx, positionID, muted); err != nil {
		return err
	}
	m.logger.Info("Position mute updated", zap.Int64("position_id", positionID), zap.Bool("muted", muted))
	return nil
}

// Remove stops tracking a position and drops its history.
func (m *PositionManager) Remove(ctx context.Context, positionID int64) error {
	if err := m.store.DeletePosition(ctx, positionID); err != nil {
		return err
	}
	m.logger.Info("Position removed", zap.Int64("position_id", positionID))
	return nil
}

func (m *PositionManager) List(ctx context.Context) ([]domain.Position, error) {
	return m.store.ListPositions(ctx)
}
