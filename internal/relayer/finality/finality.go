// Package finality computes and waits for a block-finality target,
// grounded on consume_events.py's calculate_block_finality,
// validate_block_finality and manage_validate_block_finality.
package finality

import (
	"context"
	"time"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
)

// Target is calculate_block_finality's return value: the block number that
// must be reached, and how long that is expected to take.
type Target struct {
	BlockNumber uint64
	Seconds     time.Duration
}

// Compute derives the finality target for an event seen at blockStep on
// cfg's chain: wait_block_validation blocks later, at
// block_validation_second_per_block seconds/block. A zero
// WaitBlockValidation is a legitimately configured chain with immediate
// finality, not an error; the only failure mode calculate_block_finality
// names is a missing chain config, which callers check before reaching
// Compute (chain.Cache.ConfigOf already returns ErrConfigBlockchainDataMissing
// for that case).
func Compute(cfg domain.ChainConfig, blockStep uint64) Target {
	return Target{
		BlockNumber: blockStep + cfg.WaitBlockValidation,
		Seconds:     time.Duration(cfg.WaitBlockValidation*cfg.BlockValidationSecondPerBlock) * time.Second,
	}
}

// Wait blocks until provider's current block reaches target, polling once
// per second after an initial sleep for target.Seconds, mirroring
// validate_block_finality's loop; it returns ErrBlockFinalityTimeExceeded
// once allocatedTime has elapsed without success.
func Wait(ctx context.Context, provider chain.Provider, target Target, allocatedTime time.Duration, log rlog.Logger) (uint64, error) {
	blockNumber, err := provider.CurrentBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	log.Log(rlog.BlockFinality, "waiting for block finality",
		"block_number", blockNumber, "target", target.BlockNumber)

	if blockNumber >= target.BlockNumber {
		log.Log(rlog.Success, "block finality validated",
			"block_number", blockNumber, "target", target.BlockNumber)
		return blockNumber, nil
	}

	log.Log(rlog.Wait, "waiting for block finality",
		"block_number", blockNumber, "target", target.BlockNumber, "sleep", target.Seconds)
	if err := sleep(ctx, target.Seconds); err != nil {
		return 0, err
	}
	elapsed := target.Seconds

	for {
		blockNumber, err = provider.CurrentBlockNumber(ctx)
		if err != nil {
			return 0, err
		}
		if blockNumber >= target.BlockNumber {
			log.Log(rlog.Success, "block finality validated",
				"block_number", blockNumber, "target", target.BlockNumber)
			return blockNumber, nil
		}

		if elapsed >= allocatedTime {
			return 0, domain.ErrBlockFinalityTimeExceeded
		}

		if err := sleep(ctx, time.Second); err != nil {
			return 0, err
		}
		elapsed += time.Second
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
