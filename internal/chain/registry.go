package chain

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/utils/metrics"
)

// Registry maps chain ids to their providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[int64]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[int64]Provider)}
}

// NewRegistryFromConfig builds one SubgraphClient per configured chain.
func NewRegistryFromConfig(cfgs []ClientConfig, logger *zap.Logger, collector *metrics.Collector) (*Registry, error) {
	r := NewRegistry()
	for _, cfg := range cfgs {
		client, err := NewSubgraphClient(cfg, logger, collector)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", cfg.ChainID, err)
		}
		r.Register(cfg.ChainID, client)
	}
	return r, nil
}

// Register adds or replaces the provider of a chain.
func (r *Registry) Register(chainID int64, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[chainID] = p
}

// Get returns the provider of a chain.
func (r *Registry) Get(chainID int64) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[chainID]
	if !ok {
		return nil, fmt.Errorf("no provider configured for chain %d", chainID)
	}
	return p, nil
}

// Wrap replaces every registered provider with wrap(chainID, provider).
func (r *Registry) Wrap(wrap func(chainID int64, p Provider) Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.providers {
		r.providers[id] = wrap(id, p)
	}
}

// ChainIDs returns the registered chain ids in ascending order.
func (r *Registry) ChainIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
