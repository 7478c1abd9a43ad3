package scanner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/codec"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// ABIResolver decodes a raw log into its event name and arguments, standing
// in for web3.py's contract.events machinery behind get_event_data: the
// scanner itself stays decoupled from any one contract's ABI shape.
type ABIResolver struct {
	Contract abi.ABI
}

// decodeLogs turns raw logs into domain.Event, mirroring scan()'s per-log
// loop: a log with a null log index would mean a pending block, but
// go-ethereum's FilterLogs never returns pending logs, so that guard from
// web3.py (idx is None) has no analogue here and is intentionally omitted.
func decodeLogs(resolver *ABIResolver, chainID uint64, logs []types.Log) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		event, err := resolver.decodeLog(chainID, l)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// decodeLog resolves the log's topic0 against the contract ABI and unpacks
// both its non-indexed (data) and indexed (topic) arguments into a
// domain.EventPayload, the same two-part decode web3.py's contract event
// filter performs internally before handing back event['args'].
func (r *ABIResolver) decodeLog(chainID uint64, l types.Log) (domain.Event, error) {
	if len(l.Topics) == 0 {
		return domain.Event{}, domain.ErrEventConverterType
	}

	abiEvent, err := r.Contract.EventByID(l.Topics[0])
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrEventConverterType, err)
	}

	args := make(map[string]interface{})
	if len(l.Data) > 0 {
		if err := r.Contract.UnpackIntoMap(args, abiEvent.Name, l.Data); err != nil {
			return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrEventConverterType, err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range abiEvent.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
			return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrEventConverterType, err)
		}
	}

	return domain.Event{
		ChainID:     chainID,
		EventName:   abiEvent.Name,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    uint(l.Index),
		Data:        payloadFromArgs(args),
	}, nil
}

// payloadFromArgs maps the bridge contract's fixed argument names onto
// EventPayload's fields, the Go side of web3.py's loosely-typed event['args']
// dict; an argument the contract omits (e.g. a confirmation event with no
// amount) is simply left at its zero value.
func payloadFromArgs(args map[string]interface{}) domain.EventPayload {
	var p domain.EventPayload
	if v, ok := args["from"].(common.Address); ok {
		p.From = v
	}
	if v, ok := args["to"].(common.Address); ok {
		p.To = v
	}
	if v, ok := args["chainIdFrom"]; ok {
		p.ChainIDFrom = toUint64(v)
	}
	if v, ok := args["chainIdTo"]; ok {
		p.ChainIDTo = toUint64(v)
	}
	if v, ok := args["tokenName"].(string); ok {
		p.TokenName = v
	}
	if v, ok := args["amount"].(*big.Int); ok {
		p.Amount = v
	}
	if v, ok := args["nonce"]; ok {
		p.Nonce = toUint64(v)
	}
	if v, ok := args["blockStep"]; ok {
		p.BlockStep = toUint64(v)
	}
	if v, ok := args["signature"].([]byte); ok {
		p.Signature = v
	}
	if v, ok := args["operationHash"].([]byte); ok {
		p.OperationHash = v
	}
	if v, ok := args["operationHash"].([32]byte); ok {
		p.OperationHash = v[:]
	}
	return p
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case *big.Int:
		return n.Uint64()
	case uint8:
		return uint64(n)
	default:
		return 0
	}
}

// encodeEvent is the scanner's boundary-crossing serialisation, reusing the
// shared RLP codec so queue messages and repository records use one wire
// format.
func encodeEvent(event domain.Event) ([]byte, error) {
	raw, err := codec.EncodeEvent(event)
	if err != nil {
		return nil, fmt.Errorf("relayer: encode event %s: %w", event.AsKey(), err)
	}
	return raw, nil
}
