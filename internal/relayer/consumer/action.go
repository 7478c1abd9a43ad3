package consumer

import (
	"math/big"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// DefaultActionBuilder is the stock ActionBuilder, grounded on
// manage_event_with_rules' own dispatch branch: the target chain is
// whichever side of the payload rule.ChainFuncName names, and the params
// map carries the same three keys raw_params()/operation_hash_bytes/
// block_step feed into BridgeTaskDTO, plus the individual payload fields
// flattened by name so a contract function can pick whichever of them its
// ABI inputs are named after.
func DefaultActionBuilder(event domain.Event, rule domain.EventRuleConfig) (uint64, domain.BridgeTaskAction, error) {
	targetChainID, err := targetChainID(event, rule)
	if err != nil {
		return 0, domain.BridgeTaskAction{}, err
	}

	var operationHash [32]byte
	copy(operationHash[:], event.Data.OperationHash)

	action := domain.BridgeTaskAction{
		OperationHash: event.Data.OperationHashHex(),
		FuncName:      rule.FuncName,
		Params: map[string]any{
			"operationHash": operationHash,
			"blockStep":     new(big.Int).SetUint64(event.Data.BlockStep),
			"from":          event.Data.From,
			"to":            event.Data.To,
			"chainIdFrom":   event.Data.ChainIDFrom,
			"chainIdTo":     event.Data.ChainIDTo,
			"tokenName":     event.Data.TokenName,
			"amount":        event.Data.Amount,
			"nonce":         event.Data.Nonce,
			"signature":     event.Data.Signature,
		},
	}
	return targetChainID, action, nil
}

func targetChainID(event domain.Event, rule domain.EventRuleConfig) (uint64, error) {
	switch rule.ChainFuncName {
	case "chainIdFrom":
		return event.Data.ChainIDFrom, nil
	case "chainIdTo":
		return event.Data.ChainIDTo, nil
	default:
		return 0, domain.ErrConfigEventRuleKeyError
	}
}
