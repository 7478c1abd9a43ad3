// Package codec implements the explicit framed binary encoding the
// repository and queue boundary use to persist and transmit domain
// entities. It is grounded on klaytn's own node/sc/bridge_manager.go, whose
// BridgeJournal type hand-writes EncodeRLP/DecodeRLP for exactly the same
// kind of append-only bridge-event journal this package serialises.
package codec

import (
	"bytes"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// eventRLP is the wire shape of domain.Event. RLP has no native time or
// signed-int type, so the timestamp is carried as Unix seconds in a uint64
// and the amount as a *big.Int, which rlp encodes natively.
type eventRLP struct {
	ChainID       uint64
	EventName     string
	BlockNumber   uint64
	TxHash        common.Hash
	LogIndex      uint64
	BlockUnixTime uint64
	Handled       string

	From          common.Address
	To            common.Address
	ChainIDFrom   uint64
	ChainIDTo     uint64
	TokenName     string
	Amount        *big.Int
	Nonce         uint64
	Signature     []byte
	OperationHash []byte
	BlockStep     uint64
}

// EncodeEvent serialises an Event for repository storage or queue transport.
func EncodeEvent(e domain.Event) ([]byte, error) {
	amount := e.Data.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	w := eventRLP{
		ChainID:       e.ChainID,
		EventName:     e.EventName,
		BlockNumber:   e.BlockNumber,
		TxHash:        e.TxHash,
		LogIndex:      uint64(e.LogIndex),
		BlockUnixTime: uint64(e.BlockDatetime.Unix()),
		Handled:       e.Handled,
		From:          e.Data.From,
		To:            e.Data.To,
		ChainIDFrom:   e.Data.ChainIDFrom,
		ChainIDTo:     e.Data.ChainIDTo,
		TokenName:     e.Data.TokenName,
		Amount:        amount,
		Nonce:         e.Data.Nonce,
		Signature:     e.Data.Signature,
		OperationHash: e.Data.OperationHash,
		BlockStep:     e.Data.BlockStep,
	}
	var buf bytes.Buffer
	if err := rlp.Encode(&buf, &w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEvent is EncodeEvent's inverse.
func DecodeEvent(data []byte) (domain.Event, error) {
	var w eventRLP
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		ChainID:       w.ChainID,
		EventName:     w.EventName,
		BlockNumber:   w.BlockNumber,
		TxHash:        w.TxHash,
		LogIndex:      uint(w.LogIndex),
		BlockDatetime: time.Unix(int64(w.BlockUnixTime), 0).UTC(),
		Handled:       w.Handled,
		Data: domain.EventPayload{
			From:          w.From,
			To:            w.To,
			ChainIDFrom:   w.ChainIDFrom,
			ChainIDTo:     w.ChainIDTo,
			TokenName:     w.TokenName,
			Amount:        w.Amount,
			Nonce:         w.Nonce,
			Signature:     w.Signature,
			OperationHash: w.OperationHash,
			BlockStep:     w.BlockStep,
		},
	}, nil
}

// bridgeTaskRLP is the wire shape of domain.BridgeTask.
type bridgeTaskRLP struct {
	ChainID       uint64
	BlockNumber   uint64
	TxHash        string
	LogIndex      uint64
	OperationHash string
	EventName     string
	Status        string
	UnixTime      uint64
}

// EncodeBridgeTask serialises a BridgeTask for repository storage.
func EncodeBridgeTask(t domain.BridgeTask) ([]byte, error) {
	w := bridgeTaskRLP{
		ChainID:       t.ChainID,
		BlockNumber:   t.BlockNumber,
		TxHash:        t.TxHash,
		LogIndex:      uint64(t.LogIndex),
		OperationHash: t.OperationHash,
		EventName:     t.EventName,
		Status:        string(t.Status),
		UnixTime:      uint64(t.Datetime.Unix()),
	}
	var buf bytes.Buffer
	if err := rlp.Encode(&buf, &w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBridgeTask is EncodeBridgeTask's inverse.
func DecodeBridgeTask(data []byte) (domain.BridgeTask, error) {
	var w bridgeTaskRLP
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return domain.BridgeTask{}, err
	}
	return domain.BridgeTask{
		ChainID:       w.ChainID,
		BlockNumber:   w.BlockNumber,
		TxHash:        w.TxHash,
		LogIndex:      uint(w.LogIndex),
		OperationHash: w.OperationHash,
		EventName:     w.EventName,
		Status:        domain.EventStatus(w.Status),
		Datetime:      time.Unix(int64(w.UnixTime), 0).UTC(),
	}, nil
}

// EncodeLastScannedBlock serialises the scanner's resume checkpoint.
func EncodeLastScannedBlock(b domain.LastScannedBlock) ([]byte, error) {
	var buf bytes.Buffer
	if err := rlp.Encode(&buf, b.BlockNumber); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeLastScannedBlock is EncodeLastScannedBlock's inverse; the chain id
// is supplied by the caller since the repository key already carries it.
func DecodeLastScannedBlock(chainID uint64, data []byte) (domain.LastScannedBlock, error) {
	var blockNumber uint64
	if err := rlp.DecodeBytes(data, &blockNumber); err != nil {
		return domain.LastScannedBlock{}, err
	}
	return domain.LastScannedBlock{ChainID: chainID, BlockNumber: blockNumber}, nil
}
