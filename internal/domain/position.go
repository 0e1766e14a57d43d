// internal/domain/position.go
package domain

import (
	"fmt"
	"math"
	"time"
)

// Position is a monitored concentrated-liquidity stake.
type Position struct {
	ID           int64     `json:"id"`
	ChainID      int64     `json:"chain_id"`
	Muted        bool      `json:"muted"`
	CreatedAt    time.Time `json:"created_at"`
	Token0Symbol string    `json:"token0_symbol"`
	Token1Symbol string    `json:"token1_symbol"`
}

// PositionSnapshot is a single point-in-time read of a position.
type PositionSnapshot struct {
	TickCurr  int `json:"tick_curr"`
	TickLeft  int `json:"tick_left"`
	TickRight int `json:"tick_right"`

	LiquidityToken0 float64 `json:"liquidity_token0"`
	LiquidityToken1 float64 `json:"liquidity_token1"`
	FeesToken0      float64 `json:"fees_token0"`
	FeesToken1      float64 `json:"fees_token1"`

	// PriceToken0Token1 is the pool price, token0 per token1.
	PriceToken0Token1 float64 `json:"price_token0_token1"`
	BlockNumber       uint64  `json:"block_number"`
	Pair              string  `json:"pair"`
}

// Validate rejects snapshots the engine must never see.
func (s PositionSnapshot) Validate() error {
	if s.TickLeft >= s.TickRight {
		return fmt.Errorf("%w: tick range [%d, %d] is empty", ErrInvalidSnapshot, s.TickLeft, s.TickRight)
	}
	amounts := map[string]float64{
		"liquidity_token0":    s.LiquidityToken0,
		"liquidity_token1":    s.LiquidityToken1,
		"fees_token0":         s.FeesToken0,
		"fees_token1":         s.FeesToken1,
		"price_token0_token1": s.PriceToken0Token1,
	}
	for name, v := range amounts {
		if err := checkAmount(name, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	return nil
}

// InRange reports whether the current tick lies strictly between the bounds.
func (s PositionSnapshot) InRange() bool {
	return s.TickCurr > s.TickLeft && s.TickCurr < s.TickRight
}

// TotalToken0 is liquidity plus accrued fees for token0.
func (s PositionSnapshot) TotalToken0() float64 {
	return s.LiquidityToken0 + s.FeesToken0
}

// TotalToken1 is liquidity plus accrued fees for token1.
func (s PositionSnapshot) TotalToken1() float64 {
	return s.LiquidityToken1 + s.FeesToken1
}

// Rates holds the current USD exchange rate of both pool tokens.
type Rates struct {
	Token0USD float64 `json:"token0_usd"`
	Token1USD float64 `json:"token1_usd"`
}

func (r Rates) Validate() error {
	if err := checkAmount("token0_usd", r.Token0USD); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRates, err)
	}
	if err := checkAmount("token1_usd", r.Token1USD); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRates, err)
	}
	return nil
}

// PositionInitData is the baseline captured once when the position was minted.
type PositionInitData struct {
	InitValueToken0   float64   `json:"init_value_token0"`
	InitValueToken1   float64   `json:"init_value_token1"`
	InitToken0USDRate float64   `json:"init_token0_usd_rate"`
	InitToken1USDRate float64   `json:"init_token1_usd_rate"`
	CreatedAt         time.Time `json:"created_at"`
	Token0Symbol      string    `json:"token0_symbol"`
	Token1Symbol      string    `json:"token1_symbol"`
}

func (d PositionInitData) Validate() error {
	if d.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is zero", ErrInvalidInitData)
	}
	amounts := map[string]float64{
		"init_value_token0":    d.InitValueToken0,
		"init_value_token1":    d.InitValueToken1,
		"init_token0_usd_rate": d.InitToken0USDRate,
		"init_token1_usd_rate": d.InitToken1USDRate,
	}
	for name, v := range amounts {
		if err := checkAmount(name, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInitData, err)
		}
	}
	return nil
}

// InitValueUSD is the USD value of the deposit at mint time.
func (d PositionInitData) InitValueUSD() float64 {
	return d.InitValueToken0*d.InitToken0USDRate + d.InitValueToken1*d.InitToken1USDRate
}

// HoldValueUSD is what the initial deposit would be worth today if it had not
// been provided as liquidity.
func (d PositionInitData) HoldValueUSD(r Rates) float64 {
	return d.InitValueToken0*r.Token0USD + d.InitValueToken1*r.Token1USD
}

// InitialPriceToken0Token1 is the token0/token1 ratio implied by the mint rates.
func (d PositionInitData) InitialPriceToken0Token1() float64 {
	if d.InitToken1USDRate == 0 {
		return 0
	}
	return d.InitToken0USDRate / d.InitToken1USDRate
}

func checkAmount(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not a finite number", name)
	}
	if v < 0 {
		return fmt.Errorf("%s is negative: %v", name, v)
	}
	return nil
}
