// Package memory provides an in-process HistoryStore for tests and for
// running without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
	"github.com/rovshanmuradov/lp-monitor/internal/storage"
)

type positionEntry struct {
	position domain.Position
	init     domain.PositionInitData
}

// DefaultHistoryLimit caps the snapshots kept per position.
const DefaultHistoryLimit = 10_000

// Store is a thread-safe in-memory HistoryStore. Each position keeps at
// most historyLimit snapshots; older ones are dropped first.
type Store struct {
	mu           sync.RWMutex
	positions    map[int64]positionEntry
	snapshots    map[int64][]storage.SnapshotRecord
	historyLimit int
	now          func() time.Time
}

var _ storage.HistoryStore = (*Store)(nil)

func NewStore() *Store {
	return NewStoreWithLimit(DefaultHistoryLimit)
}

// NewStoreWithLimit creates a store keeping up to limit snapshots per
// position. A non-positive limit selects DefaultHistoryLimit.
func NewStoreWithLimit(limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{
		positions:    make(map[int64]positionEntry),
		snapshots:    make(map[int64][]storage.SnapshotRecord),
		historyLimit: limit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) RunMigrations(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListPositions(_ context.Context) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]domain.Position, 0, len(s.positions))
	for _, e := range s.positions {
		positions = append(positions, e.position)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].ID < positions[j].ID })
	return positions, nil
}

func (s *Store) GetPosition(_ context.Context, positionID int64) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.positions[positionID]
	if !ok {
		return domain.Position{}, fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}
	return e.position, nil
}

func (s *Store) GetInitData(_ context.Context, positionID int64) (domain.PositionInitData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.positions[positionID]
	if !ok {
		return domain.PositionInitData{}, fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}
	return e.init, nil
}

func (s *Store) SavePosition(_ context.Context, pos domain.Position, init domain.PositionInitData) error {
	if err := storage.ValidateNewPosition(pos, init); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.positions[pos.ID]; exists {
		return fmt.Errorf("position %d: %w", pos.ID, storage.ErrDuplicateKey)
	}

	pos.CreatedAt = init.CreatedAt
	pos.Token0Symbol = init.Token0Symbol
	pos.Token1Symbol = init.Token1Symbol
	s.positions[pos.ID] = positionEntry{position: pos, init: init}
	return nil
}

func (s *Store) SetMuted(_ context.Context, positionID int64, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.positions[positionID]
	if !ok {
		return fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}
	e.position.Muted = muted
	s.positions[positionID] = e
	return nil
}

func (s *Store) DeletePosition(_ context.Context, positionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[positionID]; !ok {
		return fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}
	delete(s.positions, positionID)
	delete(s.snapshots, positionID)
	return nil
}

func (s *Store) AppendSnapshot(_ context.Context, positionID int64, snap domain.PositionSnapshot, rates domain.Rates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[positionID]; !ok {
		return fmt.Errorf("position %d: %w", positionID, storage.ErrNotFound)
	}
	history := append(s.snapshots[positionID], storage.SnapshotRecord{
		PositionID: positionID,
		Snapshot:   snap,
		Rates:      rates,
		RecordedAt: s.now(),
	})
	if over := len(history) - s.historyLimit; over > 0 {
		n := copy(history, history[over:])
		clear(history[n:])
		history = history[:n]
	}
	s.snapshots[positionID] = history
	return nil
}

// ListSnapshots returns up to limit records, newest first. A non-positive
// limit returns everything.
func (s *Store) ListSnapshots(_ context.Context, positionID int64, limit int) ([]storage.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.snapshots[positionID]
	n := len(history)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]storage.SnapshotRecord, 0, n)
	for i := len(history) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, history[i])
	}
	return result, nil
}
