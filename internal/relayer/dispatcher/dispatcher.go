// Package dispatcher builds, signs, sends and waits on the transaction that
// carries out a BridgeTaskAction, grounded on execute_contracts.py /
// execute_contract.py's call_contract_func sequence, extended with
// go-ethereum's own ABI encode/sign/send/wait primitives since the Python
// version delegates all of that to web3.py's contract object.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
)

const defaultGasLimit = 300_000

// Dispatcher sends dispatched bridge-task transactions on any chain the
// cache knows, resolving the provider per call.
type Dispatcher struct {
	cache       *chain.Cache
	errorTables map[uint64]*ErrorTable
	log         rlog.Logger
}

func New(cache *chain.Cache, errorTables map[uint64]*ErrorTable) *Dispatcher {
	return &Dispatcher{cache: cache, errorTables: errorTables, log: rlog.New("dispatcher")}
}

// Dispatch mirrors call_contract_func's nine-step sequence: resolve the
// provider, ABI-encode the call, fetch the nonce, build, sign, send, then
// wait for the receipt and translate a non-1 status (or a decoded custom
// error) into ErrBlockchainFailedExecuteContract.
func (d *Dispatcher) Dispatch(ctx context.Context, chainID uint64, contractAddress common.Address, contractABI abi.ABI, action domain.BridgeTaskAction) (domain.BridgeTaskTxResult, error) {
	idMsg := fmt.Sprintf("chain_id=%d operation_hash=%s func_name=%s", chainID, action.OperationHash, action.FuncName)
	d.log.Log(rlog.SendTx, "execute smart contract function", "op", action.OperationHash, "func", action.FuncName)

	provider, err := d.cache.Get(ctx, chainID)
	if err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w", idMsg, err)
	}

	data, err := encodeCall(contractABI, action)
	if err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w: %v", idMsg, domain.ErrBuildTx, err)
	}

	nonce, err := provider.TransactionCount(ctx)
	if err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w", idMsg, err)
	}

	tx, err := provider.BuildTx(ctx, chain.TxRequest{To: contractAddress, Data: data, GasLimit: defaultGasLimit}, nonce)
	if err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w: %v", idMsg, domain.ErrBuildTx, err)
	}

	signed, err := provider.SignTx(tx)
	if err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w: %v", idMsg, domain.ErrSignTx, err)
	}

	if err := provider.SendRaw(ctx, signed); err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w: %v", idMsg, domain.ErrSendRawTx, err)
	}

	receipt, err := provider.WaitReceipt(ctx, signed.Hash())
	if err != nil {
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s: %w", idMsg, err)
	}

	if receipt.Status != 1 {
		errName := d.decodeRevertReason(ctx, provider, chainID, signed.Hash())
		d.log.Error(rlog.Fail, "transaction failed", "op", action.OperationHash, "revert", errName)
		return domain.BridgeTaskTxResult{}, fmt.Errorf("%s revert=%s: %w", idMsg, errName, domain.ErrBlockchainFailedExecuteContract)
	}

	d.log.Log(rlog.Success, "transaction success", "op", action.OperationHash, "tx_hash", signed.Hash().Hex())

	return domain.BridgeTaskTxResult{
		TxHash:      signed.Hash().Hex(),
		BlockHash:   receipt.BlockHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Status:      receipt.Status,
	}, nil
}

func encodeCall(contractABI abi.ABI, action domain.BridgeTaskAction) ([]byte, error) {
	method, ok := contractABI.Methods[action.FuncName]
	if !ok {
		return nil, fmt.Errorf("relayer: contract has no method %q", action.FuncName)
	}
	args := make([]interface{}, len(method.Inputs))
	for i, input := range method.Inputs {
		args[i] = action.Params[input.Name]
	}
	return contractABI.Pack(action.FuncName, args...)
}

// decodeRevertReason replays txHash as an eth_call to recover its revert
// data, then looks the leading 4-byte selector up in chainID's ErrorTable —
// the "helper derives (selector_hex -> error_name)" step SPEC_FULL.md §6
// calls for. It returns "unknown" when no table is configured for the
// chain or the call yields no revert data.
func (d *Dispatcher) decodeRevertReason(ctx context.Context, provider chain.Provider, chainID uint64, txHash common.Hash) string {
	table, ok := d.errorTables[chainID]
	if !ok {
		return "unknown"
	}
	revertData, err := provider.RevertReason(ctx, txHash)
	if err != nil || len(revertData) < 4 {
		return "unknown"
	}
	return table.Decode(revertData[:4])
}
