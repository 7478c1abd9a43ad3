package dispatcher

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

const testContractABI = `[
	{"type":"function","name":"completeOperation","stateMutability":"nonpayable",
	 "inputs":[{"name":"operationHash","type":"bytes32"},{"name":"blockStep","type":"uint256"}],
	 "outputs":[]},
	{"type":"error","name":"OperationAlreadyCompleted","inputs":[{"name":"operationHash","type":"bytes32"}]}
]`

func parseTestABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testContractABI))
	require.NoError(t, err)
	return parsed
}

func TestEncodeCallPacksParamsByInputName(t *testing.T) {
	contractABI := parseTestABI(t)

	action := domain.BridgeTaskAction{
		OperationHash: "0xbeef",
		FuncName:      "completeOperation",
		Params: map[string]any{
			"operationHash": [32]byte{0xbe, 0xef},
			"blockStep":     big.NewInt(100),
		},
	}

	data, err := encodeCall(contractABI, action)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	method := contractABI.Methods["completeOperation"]
	require.Equal(t, method.ID, data[:4])
}

func TestEncodeCallUnknownMethod(t *testing.T) {
	contractABI := parseTestABI(t)

	_, err := encodeCall(contractABI, domain.BridgeTaskAction{FuncName: "noSuchMethod"})
	require.Error(t, err)
}

func TestErrorTableDecodesCustomError(t *testing.T) {
	contractABI := parseTestABI(t)
	table := NewErrorTable(contractABI)

	selector := crypto.Keccak256([]byte("OperationAlreadyCompleted(bytes32)"))[:4]
	require.Equal(t, "OperationAlreadyCompleted", table.Decode(selector))
}

func TestErrorTableDecodeUnknownSelector(t *testing.T) {
	table := NewErrorTable(parseTestABI(t))
	require.Equal(t, "0xdeadbeef", table.Decode([]byte{0xde, 0xad, 0xbe, 0xef}))
}

func TestDecodeRevertReasonUsesErrorTable(t *testing.T) {
	contractABI := parseTestABI(t)
	table := NewErrorTable(contractABI)

	d := &Dispatcher{errorTables: map[uint64]*ErrorTable{1: table}}
	provider := chain.NewFakeProvider(1)

	selector := crypto.Keccak256([]byte("OperationAlreadyCompleted(bytes32)"))[:4]
	provider.RevertData = append(append([]byte{}, selector...), make([]byte, 32)...)

	name := d.decodeRevertReason(context.Background(), provider, 1, common.HexToHash("0x01"))
	require.Equal(t, "OperationAlreadyCompleted", name)
}

func TestDecodeRevertReasonUnknownChain(t *testing.T) {
	d := &Dispatcher{errorTables: map[uint64]*ErrorTable{}}
	provider := chain.NewFakeProvider(1)

	name := d.decodeRevertReason(context.Background(), provider, 99, common.HexToHash("0x01"))
	require.Equal(t, "unknown", name)
}

func newTestDispatcher(t *testing.T, provider *chain.FakeProvider) (*Dispatcher, abi.ABI) {
	t.Helper()
	contractABI := parseTestABI(t)
	cache := chain.NewCache(map[uint64]domain.ChainConfig{1: {ChainID: 1}})
	cache.Seed(1, provider)
	return New(cache, map[uint64]*ErrorTable{1: NewErrorTable(contractABI)}), contractABI
}

func completeOperationAction() domain.BridgeTaskAction {
	return domain.BridgeTaskAction{
		OperationHash: "0xbeef",
		FuncName:      "completeOperation",
		Params:        map[string]any{"operationHash": [32]byte{0xbe, 0xef}, "blockStep": big.NewInt(100)},
	}
}

// TestDispatchWrapsBuildTxError covers spec.md §4.6 step 4: any ABI-encoding
// or gas-estimation error must surface as ErrBuildTx so callers can
// pattern-match it apart from a signing or broadcast failure.
func TestDispatchWrapsBuildTxError(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.FailBuildTx = errors.New("fake: gas estimation failed")
	d, contractABI := newTestDispatcher(t, provider)

	_, err := d.Dispatch(context.Background(), 1, common.HexToAddress("0xaa"), contractABI, completeOperationAction())
	require.True(t, errors.Is(err, domain.ErrBuildTx))
}

// TestDispatchWrapsSignTxError covers spec.md §4.6 step 5.
func TestDispatchWrapsSignTxError(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.FailSignTx = errors.New("fake: key store locked")
	d, contractABI := newTestDispatcher(t, provider)

	_, err := d.Dispatch(context.Background(), 1, common.HexToAddress("0xaa"), contractABI, completeOperationAction())
	require.True(t, errors.Is(err, domain.ErrSignTx))
}

// TestDispatchWrapsSendRawTxError covers spec.md §4.6 step 6.
func TestDispatchWrapsSendRawTxError(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	provider.FailSendRaw = errors.New("fake: node rejected raw tx")
	d, contractABI := newTestDispatcher(t, provider)

	_, err := d.Dispatch(context.Background(), 1, common.HexToAddress("0xaa"), contractABI, completeOperationAction())
	require.True(t, errors.Is(err, domain.ErrSendRawTx))
}

// TestDispatchSucceedsAgainstFakeProvider is the happy path the three error
// tests above are deviations from: build, sign, send and wait all succeed
// and Dispatch returns a populated TxResult with no error.
func TestDispatchSucceedsAgainstFakeProvider(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	d, contractABI := newTestDispatcher(t, provider)

	result, err := d.Dispatch(context.Background(), 1, common.HexToAddress("0xaa"), contractABI, completeOperationAction())
	require.NoError(t, err)
	require.Equal(t, uint64(types.ReceiptStatusSuccessful), result.Status)
	require.Len(t, provider.SentTxs, 1)
}

// TestDispatchWrapsContractExecFailed covers spec.md §4.6 step 8: a
// non-successful receipt status is ContractExecFailed, distinct from the
// three send-path sentinels above.
func TestDispatchWrapsContractExecFailed(t *testing.T) {
	provider := chain.NewFakeProvider(1)
	d, contractABI := newTestDispatcher(t, provider)

	// WaitReceipt looks the receipt up by the signed tx's hash; FakeProvider's
	// SignTx returns the tx unmodified, so the hash is known before Dispatch
	// sends it.
	unsignedTx := types.NewTx(&types.DynamicFeeTx{Nonce: 0, To: &common.Address{}, Gas: defaultGasLimit})
	data, err := encodeCall(contractABI, completeOperationAction())
	require.NoError(t, err)
	contractAddr := common.HexToAddress("0xaa")
	unsignedTx = types.NewTx(&types.DynamicFeeTx{Nonce: 0, To: &contractAddr, Data: data, Gas: defaultGasLimit})
	provider.Receipts = map[common.Hash]*types.Receipt{
		unsignedTx.Hash(): {Status: types.ReceiptStatusFailed, TxHash: unsignedTx.Hash()},
	}

	_, err = d.Dispatch(context.Background(), 1, contractAddr, contractABI, completeOperationAction())
	require.True(t, errors.Is(err, domain.ErrBlockchainFailedExecuteContract))
}
