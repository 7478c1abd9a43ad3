package repository

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

func newTestStore() *Store {
	return NewStore(NewMemoryKV())
}

func TestGetLastScannedBlockDefaultsToZero(t *testing.T) {
	store := newTestStore()

	got, err := store.GetLastScannedBlock(1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}

func TestSetAndGetLastScannedBlock(t *testing.T) {
	store := newTestStore()

	require.NoError(t, store.SetLastScannedBlock(1, 12345))
	got, err := store.GetLastScannedBlock(1)
	require.NoError(t, err)
	require.Equal(t, uint64(12345), got)

	// a different chain id's checkpoint stays independent.
	got2, err := store.GetLastScannedBlock(2)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got2)
}

func sampleEvent() domain.Event {
	return domain.Event{
		ChainID:       80002,
		EventName:     "OperationCreated",
		BlockNumber:   10,
		TxHash:        common.HexToHash("0x01"),
		LogIndex:      0,
		BlockDatetime: time.Now().UTC(),
		Data:          domain.EventPayload{OperationHash: []byte("op-1")},
	}
}

func TestStoreEventIsIdempotent(t *testing.T) {
	store := newTestStore()
	event := sampleEvent()

	isNew, err := store.StoreEvent(event)
	require.NoError(t, err)
	require.True(t, isNew)

	isNew, err = store.StoreEvent(event)
	require.NoError(t, err)
	require.False(t, isNew, "storing the same event twice should not report it as new")
}

func TestSetEventAsRegisteredMarksHandled(t *testing.T) {
	store := newTestStore()
	event := sampleEvent()

	require.False(t, store.IsEventRegistered(event))
	_, err := store.StoreEvent(event)
	require.NoError(t, err)

	require.NoError(t, store.SetEventAsRegistered(event))
	require.True(t, store.IsEventRegistered(event))
}

func TestResumeIncompleteBridgeTasksFiltersByStatus(t *testing.T) {
	store := newTestStore()

	processing := domain.BridgeTask{OperationHash: "0x1", EventName: "OperationCreated", Status: domain.StatusProcessing}
	succeeded := domain.BridgeTask{OperationHash: "0x2", EventName: "OperationCreated", Status: domain.StatusSuccess}
	failed := domain.BridgeTask{OperationHash: "0x3", EventName: "OperationCreated", Status: domain.StatusFailed}

	require.NoError(t, store.SaveBridgeTask(processing))
	require.NoError(t, store.SaveBridgeTask(succeeded))
	require.NoError(t, store.SaveBridgeTask(failed))

	incomplete, err := store.ResumeIncompleteBridgeTasks()
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	require.Equal(t, failed.AsKey(), incomplete[0].AsKey())
}

func TestGetBridgeTaskNotFound(t *testing.T) {
	store := newTestStore()

	_, err := store.GetBridgeTask("missing-key")
	require.Error(t, err)
}
