package chain

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// RateCache stores recently fetched rates.
type RateCache interface {
	Get(ctx context.Context, chainID, positionID int64) (domain.Rates, bool, error)
	Set(ctx context.Context, chainID, positionID int64, rates domain.Rates) error
}

// CachedRates serves GetRates from a cache and falls through to the wrapped
// provider on a miss. Cache failures are logged and bypassed.
type CachedRates struct {
	Provider
	chainID int64
	cache   RateCache
	logger  *zap.Logger
}

func NewCachedRates(chainID int64, p Provider, cache RateCache, logger *zap.Logger) *CachedRates {
	return &CachedRates{
		Provider: p,
		chainID:  chainID,
		cache:    cache,
		logger:   logger.Named("rate_cache"),
	}
}

func (c *CachedRates) GetRates(ctx context.Context, positionID int64) (domain.Rates, error) {
	rates, ok, err := c.cache.Get(ctx, c.chainID, positionID)
	switch {
	case err != nil:
		c.logger.Warn("Rate cache read failed", zap.Int64("position_id", positionID), zap.Error(err))
	case ok:
		return rates, nil
	}

	rates, err = c.Provider.GetRates(ctx, positionID)
	if err != nil {
		return domain.Rates{}, err
	}

	if err := c.cache.Set(ctx, c.chainID, positionID, rates); err != nil {
		c.logger.Warn("Rate cache write failed", zap.Int64("position_id", positionID), zap.Error(err))
	}
	return rates, nil
}
