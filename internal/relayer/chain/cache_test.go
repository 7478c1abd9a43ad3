package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

func TestConfigOfUnknownChain(t *testing.T) {
	c := NewCache(map[uint64]domain.ChainConfig{1: {ChainID: 1}})

	_, err := c.ConfigOf(2)
	require.True(t, errors.Is(err, domain.ErrConfigBlockchainDataMissing))
}

func TestConfigOfKnownChain(t *testing.T) {
	c := NewCache(map[uint64]domain.ChainConfig{1: {ChainID: 1, RPCURL: "https://rpc.example"}})

	cfg, err := c.ConfigOf(1)
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example", cfg.RPCURL)
}

func TestGetUnknownChainFailsWithoutDialing(t *testing.T) {
	c := NewCache(nil)

	_, err := c.Get(context.Background(), 99)
	require.True(t, errors.Is(err, domain.ErrConfigBlockchainDataMissing))
}
