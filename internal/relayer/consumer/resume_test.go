package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/codec"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/queue"
)

func TestResumeIncompleteTasksRedrivesFailedTasks(t *testing.T) {
	ruleSet := map[string]domain.EventRuleConfig{
		"OperationCreated": {EventName: "OperationCreated", Origin: "chainIdFrom"},
	}
	c, store := newTestConsumer(t, ruleSet)
	q := queue.NewMemoryQueue(4)

	event := operationCreatedEvent("op-resume")
	require.NoError(t, store.SaveEvent(event))
	stuck := taskFromEvent(event, domain.StatusFailed)
	require.NoError(t, store.SaveBridgeTask(stuck))

	lookup := func(task domain.BridgeTask) (domain.Event, error) {
		require.Equal(t, stuck.AsKey(), task.AsKey())
		return event, nil
	}

	require.NoError(t, c.ResumeIncompleteTasks(context.Background(), q, lookup))

	// Resuming republishes through the queue boundary rather than re-running
	// the rules engine in process, so the task is untouched here and the
	// event is marked registered again, exactly like a freshly scanned event.
	got, err := store.GetBridgeTask(stuck.AsKey())
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, got.Status)
	require.True(t, store.IsEventRegistered(event))

	published := q.Drain()
	require.Len(t, published, 1)
	decoded, err := codec.DecodeEvent(published[0])
	require.NoError(t, err)
	require.Equal(t, event.EventName, decoded.EventName)
}

func TestResumeIncompleteTasksNoneStuck(t *testing.T) {
	c, _ := newTestConsumer(t, map[string]domain.EventRuleConfig{
		"OperationCreated": {EventName: "OperationCreated"},
	})

	require.NoError(t, c.ResumeIncompleteTasks(context.Background(), queue.NewMemoryQueue(4), func(domain.BridgeTask) (domain.Event, error) {
		t.Fatal("lookupEvent should not be called when nothing is FAILED")
		return domain.Event{}, nil
	}))
}

// TestResumeBridgeTaskRepublishesOneEvent mirrors resume_event_task: resuming
// by secondary id looks the event up directly and republishes it, without
// consulting the bridge-task store at all.
func TestResumeBridgeTaskRepublishesOneEvent(t *testing.T) {
	c, store := newTestConsumer(t, map[string]domain.EventRuleConfig{
		"OperationCreated": {EventName: "OperationCreated", Origin: "chainIdFrom"},
	})
	q := queue.NewMemoryQueue(4)

	event := operationCreatedEvent("op-resume-one")
	require.NoError(t, store.SaveEvent(event))

	err := c.ResumeBridgeTask(context.Background(), q, event.ChainID, event.BlockNumber, event.TxHash.Hex(), event.LogIndex)
	require.NoError(t, err)

	require.True(t, store.IsEventRegistered(event))
	require.Len(t, q.Drain(), 1)
}

func TestResumeBridgeTaskRejectsWrongChain(t *testing.T) {
	c, store := newTestConsumer(t, map[string]domain.EventRuleConfig{
		"OperationCreated": {EventName: "OperationCreated", Origin: "chainIdFrom"},
	})
	q := queue.NewMemoryQueue(4)

	event := operationCreatedEvent("op-resume-wrong-chain")
	require.NoError(t, store.SaveEvent(event))

	err := c.ResumeBridgeTask(context.Background(), q, event.ChainID+1, event.BlockNumber, event.TxHash.Hex(), event.LogIndex)
	require.Error(t, err)
	require.Empty(t, q.Drain())
}
