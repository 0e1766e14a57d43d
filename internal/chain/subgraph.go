package chain

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// The subgraph encodes every numeric field as a JSON string; decimal.Decimal
// parses those directly.

type tickRef struct {
	TickIdx decimal.Decimal `json:"tickIdx"`
}

type tokenRef struct {
	Symbol     string          `json:"symbol"`
	Decimals   decimal.Decimal `json:"decimals"`
	DerivedETH decimal.Decimal `json:"derivedETH"`
}

type poolRef struct {
	Tick        *decimal.Decimal `json:"tick"`
	SqrtPrice   decimal.Decimal  `json:"sqrtPrice"`
	Token0Price decimal.Decimal  `json:"token0Price"`
}

type bundleRef struct {
	EthPriceUSD decimal.Decimal `json:"ethPriceUSD"`
}

type snapshotResponse struct {
	Position *struct {
		Liquidity           decimal.Decimal `json:"liquidity"`
		CollectedFeesToken0 decimal.Decimal `json:"collectedFeesToken0"`
		CollectedFeesToken1 decimal.Decimal `json:"collectedFeesToken1"`
		TickLower           tickRef         `json:"tickLower"`
		TickUpper           tickRef         `json:"tickUpper"`
		Token0              tokenRef        `json:"token0"`
		Token1              tokenRef        `json:"token1"`
		Pool                poolRef         `json:"pool"`
	} `json:"position"`
	Meta struct {
		Block struct {
			Number uint64 `json:"number"`
		} `json:"block"`
	} `json:"_meta"`
}

type ratesResponse struct {
	Position *struct {
		Token0 tokenRef `json:"token0"`
		Token1 tokenRef `json:"token1"`
	} `json:"position"`
	Bundle *bundleRef `json:"bundle"`
}

type mintResponse struct {
	Position *struct {
		Transaction struct {
			ID          string          `json:"id"`
			BlockNumber decimal.Decimal `json:"blockNumber"`
			Timestamp   decimal.Decimal `json:"timestamp"`
		} `json:"transaction"`
	} `json:"position"`
}

type initDataResponse struct {
	Position *struct {
		DepositedToken0 decimal.Decimal `json:"depositedToken0"`
		DepositedToken1 decimal.Decimal `json:"depositedToken1"`
		Token0          tokenRef        `json:"token0"`
		Token1          tokenRef        `json:"token1"`
	} `json:"position"`
	Bundle *bundleRef `json:"bundle"`
}

func positionVar(positionID int64) map[string]any {
	return map[string]any{"id": strconv.FormatInt(positionID, 10)}
}

func errPositionMissing(positionID int64) error {
	return fmt.Errorf("%w: position %d not found on chain", domain.ErrDataUnavailable, positionID)
}

// GetSnapshot reads the position's range, the pool's current tick and the
// token amounts currently held by the position.
func (c *SubgraphClient) GetSnapshot(ctx context.Context, positionID int64) (domain.PositionSnapshot, error) {
	var resp snapshotResponse
	if err := c.query(ctx, "snapshot", snapshotQuery, positionVar(positionID), &resp); err != nil {
		return domain.PositionSnapshot{}, err
	}
	p := resp.Position
	if p == nil {
		return domain.PositionSnapshot{}, errPositionMissing(positionID)
	}
	if p.Pool.Tick == nil {
		return domain.PositionSnapshot{}, fmt.Errorf("%w: pool of position %d is not initialized", domain.ErrDataUnavailable, positionID)
	}

	tickCurr := int(p.Pool.Tick.IntPart())
	tickLower := int(p.TickLower.TickIdx.IntPart())
	tickUpper := int(p.TickUpper.TickIdx.IntPart())

	amount0, amount1 := amountsForLiquidity(
		p.Liquidity.InexactFloat64(),
		tickCurr, tickLower, tickUpper,
		int(p.Token0.Decimals.IntPart()), int(p.Token1.Decimals.IntPart()),
	)

	snap := domain.PositionSnapshot{
		TickCurr:          tickCurr,
		TickLeft:          tickLower,
		TickRight:         tickUpper,
		LiquidityToken0:   amount0,
		LiquidityToken1:   amount1,
		FeesToken0:        p.CollectedFeesToken0.InexactFloat64(),
		FeesToken1:        p.CollectedFeesToken1.InexactFloat64(),
		PriceToken0Token1: p.Pool.Token0Price.InexactFloat64(),
		BlockNumber:       resp.Meta.Block.Number,
		Pair:              p.Token0.Symbol + "/" + p.Token1.Symbol,
	}
	if err := snap.Validate(); err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	return snap, nil
}

// GetRates prices both position tokens in USD via the pool ETH bundle.
func (c *SubgraphClient) GetRates(ctx context.Context, positionID int64) (domain.Rates, error) {
	var resp ratesResponse
	if err := c.query(ctx, "rates", ratesQuery, positionVar(positionID), &resp); err != nil {
		return domain.Rates{}, err
	}
	if resp.Position == nil {
		return domain.Rates{}, errPositionMissing(positionID)
	}
	if resp.Bundle == nil {
		return domain.Rates{}, fmt.Errorf("%w: eth price bundle missing", domain.ErrDataUnavailable)
	}

	eth := resp.Bundle.EthPriceUSD
	rates := domain.Rates{
		Token0USD: resp.Position.Token0.DerivedETH.Mul(eth).InexactFloat64(),
		Token1USD: resp.Position.Token1.DerivedETH.Mul(eth).InexactFloat64(),
	}
	if err := rates.Validate(); err != nil {
		return domain.Rates{}, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	return rates, nil
}

// GetInitData reconstructs the deposit baseline from the mint transaction:
// the deposited amounts and the USD rates at the mint block.
func (c *SubgraphClient) GetInitData(ctx context.Context, positionID int64) (domain.PositionInitData, error) {
	var mint mintResponse
	if err := c.query(ctx, "mint", mintQuery, positionVar(positionID), &mint); err != nil {
		return domain.PositionInitData{}, err
	}
	if mint.Position == nil {
		return domain.PositionInitData{}, errPositionMissing(positionID)
	}
	tx := mint.Position.Transaction

	vars := positionVar(positionID)
	vars["block"] = tx.BlockNumber.IntPart()

	var resp initDataResponse
	if err := c.query(ctx, "init_data", initDataQuery, vars, &resp); err != nil {
		return domain.PositionInitData{}, err
	}
	if resp.Position == nil {
		return domain.PositionInitData{}, errPositionMissing(positionID)
	}
	if resp.Bundle == nil {
		return domain.PositionInitData{}, fmt.Errorf("%w: eth price bundle missing at block %s", domain.ErrDataUnavailable, tx.BlockNumber)
	}

	eth := resp.Bundle.EthPriceUSD
	p := resp.Position
	init := domain.PositionInitData{
		InitValueToken0:   p.DepositedToken0.InexactFloat64(),
		InitValueToken1:   p.DepositedToken1.InexactFloat64(),
		InitToken0USDRate: p.Token0.DerivedETH.Mul(eth).InexactFloat64(),
		InitToken1USDRate: p.Token1.DerivedETH.Mul(eth).InexactFloat64(),
		CreatedAt:         time.Unix(tx.Timestamp.IntPart(), 0).UTC(),
		Token0Symbol:      p.Token0.Symbol,
		Token1Symbol:      p.Token1.Symbol,
	}
	if err := init.Validate(); err != nil {
		return domain.PositionInitData{}, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}

	c.logger.Debug("Loaded position baseline",
		zap.Int64("position_id", positionID),
		zap.String("mint_tx", tx.ID),
		zap.Float64("init_value_usd", init.InitValueUSD()))
	return init, nil
}
