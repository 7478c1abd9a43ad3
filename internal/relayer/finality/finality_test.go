package finality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
)

func TestComputeTarget(t *testing.T) {
	cfg := domain.ChainConfig{ChainID: 1, WaitBlockValidation: 6, BlockValidationSecondPerBlock: 2}

	target := Compute(cfg, 100)
	require.Equal(t, uint64(106), target.BlockNumber)
	require.Equal(t, 12*time.Second, target.Seconds)
}

// TestComputeZeroWaitBlockValidation covers a chain configured for
// immediate finality: wait_block_validation = 0 is a legitimate setting,
// not a failure, so the target block is just blockStep itself.
func TestComputeZeroWaitBlockValidation(t *testing.T) {
	target := Compute(domain.ChainConfig{ChainID: 1}, 100)
	require.Equal(t, uint64(100), target.BlockNumber)
	require.Equal(t, time.Duration(0), target.Seconds)
}

func TestWaitReturnsOnceTargetReached(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.Head = 106

	got, err := Wait(context.Background(), provider, Target{BlockNumber: 100, Seconds: 0}, time.Minute, rlog.New("test"))
	require.NoError(t, err)
	require.Equal(t, uint64(106), got)
}

func TestWaitReturnsImmediatelyWithoutSpendingAllocatedTime(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.Head = 106

	got, err := Wait(context.Background(), provider, Target{BlockNumber: 100}, 0, rlog.New("test"))
	require.NoError(t, err)
	require.Equal(t, uint64(106), got)
}

func TestWaitTimesOutWhenTargetNeverReached(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.Head = 10

	_, err := Wait(context.Background(), provider, Target{BlockNumber: 1000, Seconds: 0}, 2*time.Second, rlog.New("test"))
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrBlockFinalityTimeExceeded))
}
