// Package consumer implements the rules-engine state machine that turns a
// published Event into a PROCESSING/SUCCESS/FAILED BridgeTask, optionally
// waiting for block finality and dispatching a target-chain transaction.
// It is grounded, almost line for line, on original_source's
// consume_events.py (ConsumeEvents.manage_event_with_rules).
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/codec"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/dispatcher"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/finality"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/queue"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/repository"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rules"
)

// ActionBuilder resolves an Event + EventRuleConfig into the contract call
// to dispatch, standing in for the raw_params()/params() mapping
// consume_events.py builds inline from each event's ABI-decoded fields.
type ActionBuilder func(event domain.Event, rule domain.EventRuleConfig) (targetChainID uint64, action domain.BridgeTaskAction, err error)

// Consumer drains the queue and drives each event through the rules engine.
type Consumer struct {
	rules         *rules.Table
	store         *repository.Store
	chains        *chain.Cache
	dispatcher    *dispatcher.Dispatcher
	buildAction   ActionBuilder
	allocatedTime time.Duration
	log           rlog.Logger
}

// New builds a Consumer. allocatedTime mirrors consume_events.py's
// allocated_time (default 1200s): the ceiling on how long a block-finality
// wait is allowed to run before ErrBlockFinalityTimeExceeded is raised.
func New(table *rules.Table, store *repository.Store, chains *chain.Cache, disp *dispatcher.Dispatcher, buildAction ActionBuilder, allocatedTime time.Duration) *Consumer {
	if allocatedTime <= 0 {
		allocatedTime = 1200 * time.Second
	}
	return &Consumer{
		rules:         table,
		store:         store,
		chains:        chains,
		dispatcher:    disp,
		buildAction:   buildAction,
		allocatedTime: allocatedTime,
		log:           rlog.New("consumer"),
	}
}

// Run drains publisher/consumer boundary cons, handing each delivered
// message to Callback, mirroring ConsumeEvents.__call__'s
// read_events(callback=self.callback).
func (c *Consumer) Run(ctx context.Context, cons queue.Consumer) error {
	c.log.Log(rlog.Main, "waiting for events, press ctrl+c to exit")
	return cons.Run(ctx, c.Callback)
}

// Callback mirrors ConsumeEvents.callback: decode the wire event and hand
// it to the rules engine, swallowing decode errors the same way the Python
// callback swallows EventConverterTypeError.
func (c *Consumer) Callback(ctx context.Context, body []byte) error {
	event, err := codec.DecodeEvent(body)
	if err != nil {
		c.log.Error(rlog.Fail, "cannot decode event", "err", err)
		return nil
	}
	return c.ManageEventWithRules(ctx, event)
}

func idMsg(event domain.Event) string {
	return fmt.Sprintf("chain_id=%d operation_hash=%s event=%s",
		event.ChainID, event.Data.OperationHashHex(), event.EventName)
}

// ManageEventWithRules is the rules engine's single entry point, a direct
// port of manage_event_with_rules:
//  1. look the event's rule up, bail out quietly if none is configured
//  2. persist PROCESSING
//  3. wait for block finality if the rule requires it
//  4. check depends_on: FAILED predecessor -> ErrBlockValidity; predecessor
//     not yet SUCCESS -> persist SUCCESS and return without dispatching
//  5. dispatch the configured contract function, if any
//  6. persist SUCCESS, or FAILED on a dispatch/validity failure
func (c *Consumer) ManageEventWithRules(ctx context.Context, event domain.Event) error {
	rule, err := c.rules.Lookup(event.EventName)
	if err != nil {
		c.log.Warn(rlog.Alert, "unknown event", "event", event.EventName, "err", err)
		return nil
	}

	c.log.Log(rlog.Info, "received event", "id", idMsg(event))
	task := taskFromEvent(event, domain.StatusProcessing)
	if err := c.store.SaveBridgeTask(task); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSaveEventOperationError, err)
	}

	if rule.HasBlockFinality {
		if err := c.waitBlockFinality(ctx, event); err != nil {
			return c.fail(event, err)
		}
	}

	if rule.DependsOn != "" {
		depStatus, proceed, err := c.checkDependsOn(event, rule)
		if err != nil {
			return c.fail(event, err)
		}
		if !proceed {
			task.Status = domain.StatusSuccess
			if err := c.store.SaveBridgeTask(task); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrSaveEventOperationError, err)
			}
			c.log.Debug("skip: dependency not yet satisfied", "event", event.EventName, "depends_on", rule.DependsOn, "status", depStatus)
			return nil
		}
	}

	if rule.FuncName != "" && rule.ChainFuncName != "" {
		if err := c.dispatch(ctx, event, rule); err != nil {
			return c.fail(event, err)
		}
	}

	task.Status = domain.StatusSuccess
	if err := c.store.SaveBridgeTask(task); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSaveEventOperationError, err)
	}
	return nil
}

func (c *Consumer) fail(event domain.Event, cause error) error {
	task := taskFromEvent(event, domain.StatusFailed)
	if err := c.store.SaveBridgeTask(task); err != nil {
		c.log.Error(rlog.Fail, "failed to persist FAILED status", "err", err)
	}
	c.log.Error(rlog.Fail, "failed to manage event", "id", idMsg(event), "err", cause)
	return nil
}

func (c *Consumer) waitBlockFinality(ctx context.Context, event domain.Event) error {
	provider, err := c.chains.Get(ctx, event.ChainID)
	if err != nil {
		return err
	}
	cfg, err := c.chains.ConfigOf(event.ChainID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCalculateBlockFinality, err)
	}
	target := finality.Compute(cfg, event.Data.BlockStep)
	if _, err := finality.Wait(ctx, provider, target, c.allocatedTime, c.log); err != nil {
		return domain.ErrBlockValidationFailed
	}
	return nil
}

// checkDependsOn mirrors the depends_on branch: FAILED is an error, SUCCESS
// allows dispatch to proceed, anything else (missing/PROCESSING) means
// "not yet" and the caller should persist SUCCESS without dispatching.
func (c *Consumer) checkDependsOn(event domain.Event, rule domain.EventRuleConfig) (status domain.EventStatus, proceed bool, err error) {
	key := fmt.Sprintf("%s-%s", event.Data.OperationHashHex(), rule.DependsOn)
	task, getErr := c.store.GetBridgeTask(key)
	if getErr != nil {
		return "", false, nil
	}
	switch task.Status {
	case domain.StatusFailed:
		return task.Status, false, domain.ErrBlockValidity
	case domain.StatusSuccess:
		return task.Status, true, nil
	default:
		return task.Status, false, nil
	}
}

func (c *Consumer) dispatch(ctx context.Context, event domain.Event, rule domain.EventRuleConfig) error {
	targetChainID, action, err := c.buildAction(event, rule)
	if err != nil {
		return err
	}
	cfg, err := c.chains.ConfigOf(targetChainID)
	if err != nil {
		return err
	}
	contractABI, err := cfg.ParsedABI()
	if err != nil {
		return err
	}
	_, err = c.dispatcher.Dispatch(ctx, targetChainID, cfg.ContractAddressParsed(), contractABI, action)
	return err
}

func taskFromEvent(event domain.Event, status domain.EventStatus) domain.BridgeTask {
	return domain.BridgeTask{
		ChainID:       event.ChainID,
		BlockNumber:   event.BlockNumber,
		TxHash:        event.TxHash.Hex(),
		LogIndex:      event.LogIndex,
		OperationHash: event.Data.OperationHashHex(),
		EventName:     event.EventName,
		Status:        status,
		Datetime:      time.Now().UTC(),
	}
}
