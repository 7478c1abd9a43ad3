package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FakeProvider is an in-memory chain.Provider for tests: logs, blocks and
// receipts are all pre-seeded or recorded, never fetched over the network.
type FakeProvider struct {
	mu sync.Mutex

	ChainIDValue     uint64
	Address          common.Address
	Head             uint64
	BlockTimestamps  map[uint64]time.Time
	Logs             []types.Log
	NonceValue       uint64
	SentTxs          []*types.Transaction
	Receipts         map[common.Hash]*types.Receipt
	ClientVersionStr string
	RevertData       []byte

	// FailGetLogsUntilRange, when non-zero, makes GetLogs return an error for
	// any request wider than this many blocks, so tests can exercise the
	// scanner's halving retry ladder deterministically.
	FailGetLogsUntilRange uint64

	// FailBuildTx/FailSignTx/FailSendRaw, when set, make the matching step
	// fail, so tests can exercise the dispatcher's per-step error sentinels
	// deterministically.
	FailBuildTx error
	FailSignTx  error
	FailSendRaw error
}

func NewFakeProvider(chainID uint64) *FakeProvider {
	return &FakeProvider{
		ChainIDValue:    chainID,
		BlockTimestamps: make(map[uint64]time.Time),
		Receipts:        make(map[common.Hash]*types.Receipt),
	}
}

func (f *FakeProvider) ChainID() uint64 { return f.ChainIDValue }

func (f *FakeProvider) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	return f.Head, nil
}

func (f *FakeProvider) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, bool, error) {
	t, ok := f.BlockTimestamps[blockNumber]
	return t, ok, nil
}

func (f *FakeProvider) GetLogs(ctx context.Context, filter LogFilter) ([]types.Log, error) {
	if f.FailGetLogsUntilRange > 0 && filter.ToBlock-filter.FromBlock > f.FailGetLogsUntilRange {
		return nil, fmt.Errorf("fake: range too wide")
	}
	var matched []types.Log
	for _, l := range f.Logs {
		if l.BlockNumber >= filter.FromBlock && l.BlockNumber <= filter.ToBlock {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

func (f *FakeProvider) AccountAddress() common.Address { return f.Address }

func (f *FakeProvider) TransactionCount(ctx context.Context) (uint64, error) {
	return f.NonceValue, nil
}

func (f *FakeProvider) BuildTx(ctx context.Context, req TxRequest, nonce uint64) (*types.Transaction, error) {
	if f.FailBuildTx != nil {
		return nil, f.FailBuildTx
	}
	return types.NewTx(&types.DynamicFeeTx{
		Nonce: nonce,
		To:    &req.To,
		Data:  req.Data,
		Gas:   req.GasLimit,
	}), nil
}

func (f *FakeProvider) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	if f.FailSignTx != nil {
		return nil, f.FailSignTx
	}
	return tx, nil
}

func (f *FakeProvider) SendRaw(ctx context.Context, tx *types.Transaction) error {
	if f.FailSendRaw != nil {
		return f.FailSendRaw
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentTxs = append(f.SentTxs, tx)
	return nil
}

func (f *FakeProvider) WaitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.Receipts[txHash]; ok {
		return r, nil
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash, BlockNumber: new(big.Int).SetUint64(f.Head)}, nil
}

func (f *FakeProvider) ClientVersion(ctx context.Context) (string, error) {
	return f.ClientVersionStr, nil
}

// RevertData, when set, is returned verbatim by RevertReason so tests can
// drive the dispatcher's custom-error decoding deterministically.
func (f *FakeProvider) RevertReason(ctx context.Context, txHash common.Hash) ([]byte, error) {
	return f.RevertData, nil
}
