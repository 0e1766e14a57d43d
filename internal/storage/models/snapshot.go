// internal/storage/models/snapshot.go
package models

import (
	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// PositionSnapshot is one row of position history.
type PositionSnapshot struct {
	BaseModel
	PositionID int64  `gorm:"index;not null"`
	Pair       string `gorm:"type:varchar(70)"`

	TickCurr  int `gorm:"not null"`
	TickLeft  int `gorm:"not null"`
	TickRight int `gorm:"not null"`

	LiquidityToken0  float64 `gorm:"type:double precision"`
	LiquidityToken1  float64 `gorm:"type:double precision"`
	FeesToken0       float64 `gorm:"type:double precision"`
	FeesToken1       float64 `gorm:"type:double precision"`
	Token0Token1Rate float64 `gorm:"column:token0_token1_rate;type:double precision"`
	Token0USDRate    float64 `gorm:"column:token0_usd_rate;type:double precision"`
	Token1USDRate    float64 `gorm:"column:token1_usd_rate;type:double precision"`
	BlockNumber      uint64  `gorm:"index"`
}

func NewPositionSnapshot(positionID int64, snap domain.PositionSnapshot, rates domain.Rates) *PositionSnapshot {
	return &PositionSnapshot{
		PositionID:       positionID,
		Pair:             snap.Pair,
		TickCurr:         snap.TickCurr,
		TickLeft:         snap.TickLeft,
		TickRight:        snap.TickRight,
		LiquidityToken0:  snap.LiquidityToken0,
		LiquidityToken1:  snap.LiquidityToken1,
		FeesToken0:       snap.FeesToken0,
		FeesToken1:       snap.FeesToken1,
		Token0Token1Rate: snap.PriceToken0Token1,
		Token0USDRate:    rates.Token0USD,
		Token1USDRate:    rates.Token1USD,
		BlockNumber:      snap.BlockNumber,
	}
}

func (s *PositionSnapshot) Snapshot() domain.PositionSnapshot {
	return domain.PositionSnapshot{
		TickCurr:          s.TickCurr,
		TickLeft:          s.TickLeft,
		TickRight:         s.TickRight,
		LiquidityToken0:   s.LiquidityToken0,
		LiquidityToken1:   s.LiquidityToken1,
		FeesToken0:        s.FeesToken0,
		FeesToken1:        s.FeesToken1,
		PriceToken0Token1: s.Token0Token1Rate,
		BlockNumber:       s.BlockNumber,
		Pair:              s.Pair,
	}
}

func (s *PositionSnapshot) Rates() domain.Rates {
	return domain.Rates{Token0USD: s.Token0USDRate, Token1USD: s.Token1USDRate}
}
