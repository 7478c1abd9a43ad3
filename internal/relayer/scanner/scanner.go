// Package scanner pulls bridge event logs off one chain in adaptively
// sized chunks, persists newly-seen events and publishes them to the
// queue. It is grounded on original_source's listen_events.py (ListeEvents)
// for the outer loop and resume/publish sequence, and
// relayer_blockchain_web3_v2.py for the chunk-size heuristics and the
// halving retry ladder against eth_getLogs.
package scanner

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/queue"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/repository"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
)

// Config mirrors ListeEvents's throttling parameters plus
// RelayerBlockchainProvider's retry-ladder knobs.
type Config struct {
	ChainID              uint64
	MinScanChunkSize     uint64
	MaxScanChunkSize     uint64
	ChunkSizeIncrease    float64
	MaxRequestRetries    int
	RequestRetrySeconds  time.Duration
	BlockToDelete        uint64
	StartChunkSize       uint64
	GenesisBlock         uint64
	ContractAddress      []byte
	// Topics is the event-name filter from config: the set of event
	// signature hashes get_logs restricts to, mirroring
	// construct_event_filter_params's topics argument. A nil/empty first
	// slot means "any event this contract emits".
	Topics []common.Hash
}

// Scanner drives one chain's scan loop.
type Scanner struct {
	cfg      Config
	chain    chain.Provider
	queue    queue.Publisher
	store    *repository.Store
	resolver *ABIResolver
	log      rlog.Logger
}

func New(cfg Config, provider chain.Provider, publisher queue.Publisher, store *repository.Store, resolver *ABIResolver) *Scanner {
	return &Scanner{
		cfg:      cfg,
		chain:    provider,
		queue:    publisher,
		store:    store,
		resolver: resolver,
		log:      rlog.New("scanner"),
	}
}

// Result is ListeEvents.scan's return value: every event found in the
// requested range and how many JSON-RPC chunks it took.
type Result struct {
	Events        []domain.Event
	ChunksScanned int
}

// suggestedScanEndBlock mirrors get_suggested_scan_end_block: never scan to
// the chain tip, since the tip block may not be final yet.
func (s *Scanner) suggestedScanEndBlock(ctx context.Context) (uint64, error) {
	head, err := s.chain.CurrentBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	if head == 0 {
		return 0, nil
	}
	return head - 1, nil
}

// estimateNextChunkSize mirrors estimate_next_chunk_size: reset to the
// minimum the instant any events are found (slow down to not miss
// neighbours), otherwise grow multiplicatively to skip empty ranges fast.
func (s *Scanner) estimateNextChunkSize(current uint64, eventsFound int) uint64 {
	var next float64
	if eventsFound > 0 {
		next = float64(s.cfg.MinScanChunkSize)
	} else {
		next = float64(current) * s.cfg.ChunkSizeIncrease
	}
	if next < float64(s.cfg.MinScanChunkSize) {
		next = float64(s.cfg.MinScanChunkSize)
	}
	if next > float64(s.cfg.MaxScanChunkSize) {
		next = float64(s.cfg.MaxScanChunkSize)
	}
	return uint64(next)
}

// ScanOnce walks [startBlock, endBlock] in adaptive chunks, mirroring
// ListeEvents.scan's while loop.
func (s *Scanner) ScanOnce(ctx context.Context, startBlock, endBlock uint64) (Result, error) {
	if startBlock > endBlock {
		return Result{}, &domain.ScanFailedError{
			ChainID: s.cfg.ChainID, FromBlock: startBlock, ToBlock: endBlock,
			Cause: domain.ErrEventScanFailed,
		}
	}

	chunkSize := s.cfg.StartChunkSize
	if chunkSize == 0 {
		chunkSize = 20
	}
	var (
		events        []domain.Event
		chunksScanned int
		current       = startBlock
	)

	for current <= endBlock {
		estimatedEnd := current + chunkSize
		if estimatedEnd > endBlock {
			estimatedEnd = endBlock
		}
		chunkEvents, newEnd, err := s.fetchWithRetry(ctx, current, estimatedEnd)
		if err != nil {
			return Result{}, &domain.ScanFailedError{
				ChainID: s.cfg.ChainID, FromBlock: current, ToBlock: estimatedEnd, Cause: err,
			}
		}
		events = append(events, chunkEvents...)
		chunkSize = s.estimateNextChunkSize(chunkSize, len(chunkEvents))
		current = newEnd + 1
		chunksScanned++
	}

	return Result{Events: events, ChunksScanned: chunksScanned}, nil
}

// fetchWithRetry is the halving retry ladder from _retry_web3_call: on
// failure it shrinks the range toward startBlock and sleeps before trying
// again, raising ErrFetchEventOutOfRetries once retries are exhausted.
func (s *Scanner) fetchWithRetry(ctx context.Context, startBlock, endBlock uint64) ([]domain.Event, uint64, error) {
	retries := s.cfg.MaxRequestRetries
	if retries <= 0 {
		retries = 30
	}
	delay := s.cfg.RequestRetrySeconds
	if delay <= 0 {
		delay = 3 * time.Second
	}

	for i := 0; i < retries; i++ {
		logs, err := s.chain.GetLogs(ctx, chain.LogFilter{
			ContractAddress: contractAddressOf(s.cfg.ContractAddress),
			Topics:          topicsFilter(s.cfg.Topics),
			FromBlock:       startBlock,
			ToBlock:         endBlock,
		})
		if err == nil {
			events, decodeErr := decodeLogs(s.resolver, s.cfg.ChainID, logs)
			if decodeErr != nil {
				return nil, 0, decodeErr
			}
			blockTimes := make(map[uint64]time.Time)
			for i := range events {
				blockNumber := events[i].BlockNumber
				blockTime, seen := blockTimes[blockNumber]
				if !seen {
					ts, ok, err := s.chain.BlockTimestamp(ctx, blockNumber)
					if err != nil || !ok {
						continue
					}
					blockTime = ts
					blockTimes[blockNumber] = blockTime
				}
				events[i].BlockDatetime = blockTime
			}
			return events, endBlock, nil
		}

		if i == retries-1 {
			return nil, 0, domain.ErrFetchEventOutOfRetries
		}

		s.log.Warn(rlog.Alert, "retrying event fetch",
			"start", startBlock, "end", endBlock, "err", err)
		endBlock = startBlock + (endBlock-startBlock)/2

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, 0, domain.ErrFetchEventOutOfRetries
}

// Run drives the as_service loop: scan, publish new events, checkpoint,
// sleep, repeat — until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, resume bool) error {
	startBlock, endBlock, err := s.initialRange(ctx, resume)
	if err != nil {
		return err
	}

	for {
		result, err := s.ScanOnce(ctx, startBlock, endBlock)
		if err != nil {
			s.log.Error(rlog.Fail, "scan failed", "err", err)
			return err
		}

		if err := s.publishNewEvents(ctx, result.Events); err != nil {
			return err
		}

		if err := s.store.SetLastScannedBlock(s.cfg.ChainID, endBlock); err != nil {
			s.log.Error(rlog.Fail, "unable to save last scanned block", "block", endBlock, "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}

		endBlock, err = s.suggestedScanEndBlock(ctx)
		if err != nil {
			return err
		}
		startBlock = endBlock - s.cfg.BlockToDelete
	}
}

func (s *Scanner) initialRange(ctx context.Context, resume bool) (startBlock, endBlock uint64, err error) {
	endBlock, err = s.suggestedScanEndBlock(ctx)
	if err != nil {
		return 0, 0, err
	}
	startBlock = endBlock

	if resume {
		lastScanned, err := s.store.GetLastScannedBlock(s.cfg.ChainID)
		if err != nil {
			return 0, 0, err
		}
		startBlock = s.cfg.GenesisBlock
		if lastScanned > s.cfg.BlockToDelete && lastScanned-s.cfg.BlockToDelete > startBlock {
			startBlock = lastScanned - s.cfg.BlockToDelete
		}
	}
	return startBlock, endBlock, nil
}

// publishNewEvents mirrors the __call__ loop body: store then register
// (publish) every event not already registered, skipping ones already seen
// on a prior run.
func (s *Scanner) publishNewEvents(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if s.store.IsEventRegistered(event) {
			continue
		}
		if _, err := s.store.StoreEvent(event); err != nil {
			return err
		}
		if err := s.registerEvent(ctx, event); err != nil {
			s.log.Warn(rlog.Alert, "register event failed", "key", event.AsKey(), "err", err)
		}
	}
	return nil
}

func contractAddressOf(raw []byte) common.Address {
	var addr common.Address
	copy(addr[:], raw)
	return addr
}

// topicsFilter wraps the configured event-name topic0 hashes into
// eth_getLogs's [][]common.Hash shape: a single OR-slot in position 0,
// matching any of the configured event names.
func topicsFilter(topic0 []common.Hash) [][]common.Hash {
	if len(topic0) == 0 {
		return nil
	}
	return [][]common.Hash{topic0}
}

func (s *Scanner) registerEvent(ctx context.Context, event domain.Event) error {
	if s.store.IsEventRegistered(event) {
		return nil
	}
	raw, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := s.queue.RegisterEvent(ctx, raw); err != nil {
		return err
	}
	return s.store.SetEventAsRegistered(event)
}
