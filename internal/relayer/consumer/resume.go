package consumer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/codec"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/queue"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
)

// ResumeIncompleteTasks mirrors resume_incomplete_event_tasks: on startup,
// republish every event whose bridge task is still sitting in FAILED, the
// same way a freshly scanned event first enters the queue boundary, rather
// than re-running the rules engine in process. It requires lookupEvent to
// recover the Event a FAILED BridgeTask was built from, since the task
// record itself only carries the identifying fields, not the full decoded
// payload.
func (c *Consumer) ResumeIncompleteTasks(ctx context.Context, pub queue.Publisher, lookupEvent func(task domain.BridgeTask) (domain.Event, error)) error {
	incomplete, err := c.store.ResumeIncompleteBridgeTasks()
	if err != nil {
		return fmt.Errorf("relayer: listing incomplete bridge tasks: %w", err)
	}
	if len(incomplete) == 0 {
		return nil
	}
	c.log.Log(rlog.Main, "resuming incomplete bridge tasks", "count", len(incomplete))

	for _, task := range incomplete {
		if err := c.resumeOne(ctx, pub, task, lookupEvent); err != nil {
			c.log.Error(rlog.Fail, "failed to resume bridge task", "key", task.AsKey(), "err", err)
		}
	}
	return nil
}

func (c *Consumer) resumeOne(ctx context.Context, pub queue.Publisher, task domain.BridgeTask, lookupEvent func(task domain.BridgeTask) (domain.Event, error)) error {
	event, err := lookupEvent(task)
	if err != nil {
		return fmt.Errorf("relayer: cannot recover event for task %s: %w", task.AsKey(), err)
	}
	c.log.Log(rlog.Info, "resuming bridge task", "key", task.AsKey(), "event", event.EventName)
	return c.republish(ctx, pub, event)
}

// ResumeBridgeTask mirrors resume_event_task: look up one specific event by
// its secondary id (block number, tx hash, log index) and republish it,
// matching spec.md §4.4's resume_bridge_task(chain_id, block_number,
// tx_hash, log_index).
func (c *Consumer) ResumeBridgeTask(ctx context.Context, pub queue.Publisher, chainID, blockNumber uint64, txHash string, logIndex uint) error {
	key := domain.Event{BlockNumber: blockNumber, TxHash: common.HexToHash(txHash), LogIndex: logIndex}.AsKey()
	event, err := c.store.GetEvent(key)
	if err != nil {
		return fmt.Errorf("relayer: cannot find event %s: %w", key, err)
	}
	if event.ChainID != chainID {
		return fmt.Errorf("relayer: event %s belongs to chain %d, not %d", key, event.ChainID, chainID)
	}
	c.log.Log(rlog.Info, "resuming bridge task", "key", key, "event", event.EventName)
	return c.republish(ctx, pub, event)
}

// republish re-enters the queue boundary: encode, publish, then mark
// registered, the same encode→publish→mark sequence the scanner's
// registerEvent performs after first scanning an event.
func (c *Consumer) republish(ctx context.Context, pub queue.Publisher, event domain.Event) error {
	raw, err := codec.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("relayer: encode event %s: %w", event.AsKey(), err)
	}
	if err := pub.RegisterEvent(ctx, raw); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegisterEventFailed, err)
	}
	return c.store.SetEventAsRegistered(event)
}
