package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventPayload is the ABI-decoded argument set carried by a bridge event log.
// Amount matches go-ethereum's own representation of 256-bit token amounts;
// OperationHash and Signature stay as raw bytes with hex accessors so the
// RLP wire encoding never needs to reparse a hex string.
type EventPayload struct {
	From           common.Address
	To             common.Address
	ChainIDFrom    uint64
	ChainIDTo      uint64
	TokenName      string
	Amount         *big.Int
	Nonce          uint64
	Signature      []byte
	OperationHash  []byte
	// BlockStep is the blockStep argument the contract itself emitted,
	// the value block finality and dispatch are computed against.
	BlockStep      uint64
}

func (p EventPayload) SignatureHex() string     { return hexOf(p.Signature) }
func (p EventPayload) OperationHashHex() string  { return hexOf(p.OperationHash) }

func hexOf(b []byte) string {
	if len(b) == 0 {
		return "0x"
	}
	return fmt.Sprintf("0x%x", b)
}

// Event is one decoded log entry pulled from a chain by the scanner, keyed
// the same way listen_events.py keys its EventDTO: block, tx and log index
// identify a unique occurrence on one chain (AsGlobalKey adds the chain id);
// a given tx can emit more than one event of interest so log index
// disambiguates siblings in one tx.
type Event struct {
	ChainID       uint64
	EventName     string
	BlockNumber   uint64
	TxHash        common.Hash
	LogIndex      uint
	BlockDatetime time.Time
	Handled       string
	Data          EventPayload
}

// AsKey mirrors EventDTO.as_key() in event_db.py: block number, tx hash and
// log index make up the repository key for a stored event.
func (e Event) AsKey() string {
	return fmt.Sprintf("%d-%s-%d", e.BlockNumber, e.TxHash.Hex(), e.LogIndex)
}

// AsGlobalKey additionally folds in the chain id, matching EventTxDTO.as_key()
// for the cases where events from more than one chain share one namespace.
func (e Event) AsGlobalKey() string {
	return fmt.Sprintf("%d-%d-%s-%d", e.ChainID, e.BlockNumber, e.TxHash.Hex(), e.LogIndex)
}

// LastScannedBlock records the scanner's resume point for one chain.
type LastScannedBlock struct {
	ChainID     uint64
	BlockNumber uint64
}
