// internal/storage/models/position.go
package models

import (
	"time"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// Position is a monitored position together with its mint baseline.
type Position struct {
	ID      int64 `gorm:"primaryKey;autoIncrement:false"`
	ChainID int64 `gorm:"index;not null"`
	Muted   bool  `gorm:"not null;default:false"`

	Token0Symbol string `gorm:"type:varchar(32)"`
	Token1Symbol string `gorm:"type:varchar(32)"`

	InitValueToken0   float64 `gorm:"type:double precision;not null"`
	InitValueToken1   float64 `gorm:"type:double precision;not null"`
	InitToken0USDRate float64 `gorm:"column:init_token0_usd_rate;type:double precision;not null"`
	InitToken1USDRate float64 `gorm:"column:init_token1_usd_rate;type:double precision;not null"`
	InitPriceT0T1     float64 `gorm:"column:init_price_t0_t1;type:double precision"`

	MintedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func NewPosition(pos domain.Position, init domain.PositionInitData) *Position {
	return &Position{
		ID:                pos.ID,
		ChainID:           pos.ChainID,
		Muted:             pos.Muted,
		Token0Symbol:      init.Token0Symbol,
		Token1Symbol:      init.Token1Symbol,
		InitValueToken0:   init.InitValueToken0,
		InitValueToken1:   init.InitValueToken1,
		InitToken0USDRate: init.InitToken0USDRate,
		InitToken1USDRate: init.InitToken1USDRate,
		InitPriceT0T1:     init.InitialPriceToken0Token1(),
		MintedAt:          init.CreatedAt.UTC(),
	}
}

func (p *Position) ToDomain() domain.Position {
	return domain.Position{
		ID:           p.ID,
		ChainID:      p.ChainID,
		Muted:        p.Muted,
		CreatedAt:    p.MintedAt,
		Token0Symbol: p.Token0Symbol,
		Token1Symbol: p.Token1Symbol,
	}
}

func (p *Position) InitData() domain.PositionInitData {
	return domain.PositionInitData{
		InitValueToken0:   p.InitValueToken0,
		InitValueToken1:   p.InitValueToken1,
		InitToken0USDRate: p.InitToken0USDRate,
		InitToken1USDRate: p.InitToken1USDRate,
		CreatedAt:         p.MintedAt,
		Token0Symbol:      p.Token0Symbol,
		Token1Symbol:      p.Token1Symbol,
	}
}
