package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// Cache lazily dials one Provider per chain id and reuses it, mirroring the
// chain_connector cache consume_events.py keeps so repeated dispatches to
// the same chain don't reconnect every time.
type Cache struct {
	mu        sync.Mutex
	providers map[uint64]Provider
	configs   map[uint64]domain.ChainConfig
}

// NewCache builds a cache seeded with the known chain configs; providers are
// dialed lazily on first use, not eagerly at startup.
func NewCache(configs map[uint64]domain.ChainConfig) *Cache {
	return &Cache{
		providers: make(map[uint64]Provider),
		configs:   configs,
	}
}

// Get returns the cached provider for chainID, dialing one if needed.
func (c *Cache) Get(ctx context.Context, chainID uint64) (Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.providers[chainID]; ok {
		return p, nil
	}
	cfg, ok := c.configs[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: chain_id=%d", domain.ErrConfigBlockchainDataMissing, chainID)
	}
	p, err := NewEthProvider(ctx, chainID, cfg.RPCURL+cfg.ProjectID, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	c.providers[chainID] = p
	return p, nil
}

// Seed preloads the cache with an already-constructed provider for chainID,
// bypassing NewEthProvider's dial. Tests use this to substitute a
// chain.FakeProvider for chains that would otherwise need a live RPC
// endpoint.
func (c *Cache) Seed(chainID uint64, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[chainID] = p
}

// ConfigOf returns the static config for chainID, without dialing a provider.
func (c *Cache) ConfigOf(chainID uint64) (domain.ChainConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.configs[chainID]
	if !ok {
		return domain.ChainConfig{}, fmt.Errorf("%w: chain_id=%d", domain.ErrConfigBlockchainDataMissing, chainID)
	}
	return cfg, nil
}
