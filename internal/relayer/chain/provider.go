// Package chain is the relayer's boundary to a single blockchain node: log
// scanning, account/nonce lookups and transaction submission. It is
// grounded on original_source's relayer_blockchain_web3_v2.py (a web3.py
// provider) rewired onto go-ethereum's ethclient, and on klaytn's own
// client/bridge_client.go, which is explicitly "derived from
// ethclient/ethclient.go" for the same reason: a relayer should consume the
// chain client library, not reimplement JSON-RPC framing.
package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// LogFilter describes one eth_getLogs query, the stateless query shape
// fetch_event_logs builds from construct_event_filter_params.
type LogFilter struct {
	ContractAddress common.Address
	Topics          [][]common.Hash
	FromBlock       uint64
	ToBlock         uint64
}

// TxRequest describes a contract call the dispatcher wants sent, before it
// is signed: the resolved function selector plus ABI-encoded calldata.
type TxRequest struct {
	To       common.Address
	Data     []byte
	GasLimit uint64
}

// Provider is the capability set the scanner and dispatcher depend on,
// matching spec.md's "Chain RPC" capability set. A concrete provider exists
// per configured chain id (chain.Cache); tests substitute FakeProvider.
type Provider interface {
	ChainID() uint64
	CurrentBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, bool, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]types.Log, error)
	AccountAddress() common.Address
	TransactionCount(ctx context.Context) (uint64, error)
	BuildTx(ctx context.Context, req TxRequest, nonce uint64) (*types.Transaction, error)
	SignTx(tx *types.Transaction) (*types.Transaction, error)
	SendRaw(ctx context.Context, tx *types.Transaction) error
	WaitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ClientVersion(ctx context.Context) (string, error)
	RevertReason(ctx context.Context, txHash common.Hash) ([]byte, error)
}

// ScanResult is fetch_event_logs + scan's combined output for one chunk.
type ScanResult struct {
	Events        []domain.Event
	NewEndBlock   uint64
	EndBlockTime  time.Time
}
