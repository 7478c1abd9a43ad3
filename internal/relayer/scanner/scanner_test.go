package scanner

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/queue"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/repository"
)

const testABI = `[{"type":"event","name":"OperationCreated","anonymous":false,
	"inputs":[
		{"indexed":true,"name":"operationHash","type":"bytes32"},
		{"indexed":false,"name":"from","type":"address"},
		{"indexed":false,"name":"to","type":"address"},
		{"indexed":false,"name":"chainIdFrom","type":"uint64"},
		{"indexed":false,"name":"chainIdTo","type":"uint64"},
		{"indexed":false,"name":"tokenName","type":"string"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"nonce","type":"uint64"},
		{"indexed":false,"name":"signature","type":"bytes"},
		{"indexed":false,"name":"blockStep","type":"uint256"}
	]}]`

func newTestResolver(t *testing.T) *ABIResolver {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testABI))
	require.NoError(t, err)
	return &ABIResolver{Contract: parsed}
}

// encodeOperationCreatedData ABI-encodes the event's non-indexed arguments,
// mirroring what a real OperationCreated log's Data field would contain.
func encodeOperationCreatedData(t *testing.T) []byte {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testABI))
	require.NoError(t, err)

	data, err := parsed.Events["OperationCreated"].Inputs.NonIndexed().Pack(
		common.HexToAddress("0x1"),
		common.HexToAddress("0x2"),
		uint64(80002),
		uint64(11155111),
		"USDC",
		big.NewInt(1000),
		uint64(7),
		[]byte{0xaa, 0xbb},
		big.NewInt(5),
	)
	require.NoError(t, err)
	return data
}

func newScanner(t *testing.T, provider chain.Provider) (*Scanner, *repository.Store, *queue.MemoryQueue) {
	t.Helper()
	store := repository.NewStore(repository.NewMemoryKV())
	q := queue.NewMemoryQueue(16)
	cfg := Config{
		ChainID:           1,
		MinScanChunkSize:  10,
		MaxScanChunkSize:  1000,
		ChunkSizeIncrease: 2.0,
		MaxRequestRetries: 5,
		BlockToDelete:     10,
		StartChunkSize:    20,
	}
	return New(cfg, provider, q, store, newTestResolver(t)), store, q
}

func TestScanOnceRejectsInvertedRange(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	s, _, _ := newScanner(t, provider)

	_, err := s.ScanOnce(context.Background(), 100, 50)
	var scanErr *domain.ScanFailedError
	require.True(t, errors.As(err, &scanErr))
	require.True(t, errors.Is(err, domain.ErrEventScanFailed))
}

func TestEstimateNextChunkSizeGrowsOnEmptyRangeAndResetsOnHit(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	s, _, _ := newScanner(t, provider)

	grown := s.estimateNextChunkSize(20, 0)
	require.Equal(t, uint64(40), grown)

	reset := s.estimateNextChunkSize(40, 3)
	require.Equal(t, s.cfg.MinScanChunkSize, reset)

	capped := s.estimateNextChunkSize(900, 0)
	require.Equal(t, s.cfg.MaxScanChunkSize, capped)
}

func TestScanOnceDecodesMatchingLogs(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	contractAddr := common.HexToAddress("0xaa")

	topic0 := crypto.Keccak256Hash([]byte("OperationCreated(bytes32,address,address,uint64,uint64,string,uint256,uint64,bytes,uint256)"))
	provider.Logs = []types.Log{
		{
			Address:     contractAddr,
			Topics:      []common.Hash{topic0, common.HexToHash("0xdead")},
			Data:        encodeOperationCreatedData(t),
			BlockNumber: 5,
			TxHash:      common.HexToHash("0x01"),
			Index:       0,
		},
	}
	provider.Head = 10
	provider.BlockTimestamps[5] = time.Unix(1700000000, 0)

	s, store, q := newScanner(t, provider)
	s.cfg.ContractAddress = contractAddr.Bytes()

	result, err := s.ScanOnce(context.Background(), 0, 9)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	require.Equal(t, "OperationCreated", result.Events[0].EventName)
	require.False(t, result.Events[0].BlockDatetime.IsZero())
	require.Equal(t, uint64(5), result.Events[0].Data.BlockStep)

	require.NoError(t, s.publishNewEvents(context.Background(), result.Events))
	require.True(t, store.IsEventRegistered(result.Events[0]))
	require.Len(t, q.Drain(), 1)
}

func TestFetchWithRetryExhaustsLadder(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.FailGetLogsUntilRange = 1 // fail any range wider than one block
	s, _, _ := newScanner(t, provider)
	s.cfg.MaxRequestRetries = 2
	s.cfg.RequestRetrySeconds = time.Millisecond

	_, _, err := s.fetchWithRetry(context.Background(), 0, 100)
	require.True(t, errors.Is(err, domain.ErrFetchEventOutOfRetries))
}
