package domain

import (
	"fmt"
	"time"
)

// EventStatus mirrors consume_events.py's EventStatus enum: every bridge
// task transitions PROCESSING -> SUCCESS or PROCESSING -> FAILED; a
// redelivered or resumed event starts again from PROCESSING.
type EventStatus string

const (
	StatusProcessing EventStatus = "PROCESSING"
	StatusSuccess    EventStatus = "SUCCESS"
	StatusFailed     EventStatus = "FAILED"
)

// BridgeTask is the consumer's persisted record of one event's processing
// outcome, keyed by operation hash + event name so a later event in the
// same operation (e.g. a confirmation event depending on a creation event)
// can look up its predecessor's status.
type BridgeTask struct {
	ChainID       uint64
	BlockNumber   uint64
	TxHash        string
	LogIndex      uint
	OperationHash string
	EventName     string
	Status        EventStatus
	Datetime      time.Time
}

// AsKey mirrors BridgeTaskDTO.as_key(): the depends_on lookup key.
func (t BridgeTask) AsKey() string {
	return fmt.Sprintf("%s-%s", t.OperationHash, t.EventName)
}

// AsID mirrors BridgeTaskDTO.as_id(): the per-occurrence identity, distinct
// from AsKey because two different operations can reuse an event name.
func (t BridgeTask) AsID() string {
	return fmt.Sprintf("%d-%s-%d", t.BlockNumber, t.TxHash, t.LogIndex)
}

// BridgeTaskAction is the resolved smart-contract call a rule dispatches:
// the function to invoke on the target chain and its ABI-encoded arguments.
type BridgeTaskAction struct {
	OperationHash string
	FuncName      string
	Params        map[string]any
}

// BridgeTaskTxResult is the outcome of sending a BridgeTaskAction's
// transaction, reported back by the dispatcher once the receipt lands.
type BridgeTaskTxResult struct {
	TxHash      string
	BlockHash   string
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64
}
