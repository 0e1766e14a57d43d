// internal/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// SnapshotRecord is one persisted evaluation input.
type SnapshotRecord struct {
	PositionID int64                   `json:"position_id"`
	Snapshot   domain.PositionSnapshot `json:"snapshot"`
	Rates      domain.Rates            `json:"rates"`
	RecordedAt time.Time               `json:"recorded_at"`
}

// HistoryStore owns monitored positions, their baselines and the snapshot
// history.
type HistoryStore interface {
	// Positions
	ListPositions(ctx context.Context) ([]domain.Position, error)
	GetPosition(ctx context.Context, positionID int64) (domain.Position, error)
	SavePosition(ctx context.Context, pos domain.Position, init domain.PositionInitData) error
	SetMuted(ctx context.Context, positionID int64, muted bool) error
	DeletePosition(ctx context.Context, positionID int64) error

	// Baseline
	GetInitData(ctx context.Context, positionID int64) (domain.PositionInitData, error)

	// Snapshots, newest first
	AppendSnapshot(ctx context.Context, positionID int64, snap domain.PositionSnapshot, rates domain.Rates) error
	ListSnapshots(ctx context.Context, positionID int64, limit int) ([]SnapshotRecord, error)

	RunMigrations(ctx context.Context) error
	Close() error
}

// ValidateNewPosition checks a position before it is stored.
func ValidateNewPosition(pos domain.Position, init domain.PositionInitData) error {
	if pos.ID <= 0 {
		return fmt.Errorf("%w: position id must be positive, got %d", ErrInvalidInput, pos.ID)
	}
	if pos.ChainID <= 0 {
		return fmt.Errorf("%w: chain id must be positive, got %d", ErrInvalidInput, pos.ChainID)
	}
	if err := init.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
