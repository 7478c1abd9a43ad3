// Command relayer-consume drains the relayer queue and drives each event
// through the rules engine, dispatching bridge transactions as configured.
// Grounded on original_source's bin/event_listener.py for the entry-point
// shape, consume_events.py for the rules engine it wires up, and
// register_event.py for the --send test-producer affordance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/urfave/cli.v1"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/app"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/codec"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/consumer"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/dispatcher"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rules"
)

var (
	configFlag = cli.StringFlag{Name: "config", Value: "bridge_relayer_config.toml", Usage: "TOML configuration file"}
	envFlag    = cli.StringFlag{Name: "env", Value: ".env", Usage: "dotenv file substituted into the TOML config"}
	abiFlag    = cli.StringFlag{Name: "abi", Value: "abi.json", Usage: "bridge contract ABI, keyed by chain id"}
	dbFlag     = cli.StringFlag{Name: "db", Value: "relayer-db", Usage: "repository data directory"}

	debugFlag       = cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"}
	watchFlag       = cli.BoolFlag{Name: "watch", Usage: "keep draining the queue until interrupted (default behaviour)"}
	resumeTaskFlag  = cli.BoolFlag{Name: "resume-task", Usage: "re-drive any bridge tasks left FAILED by a prior run before watching"}
	resumeChainFlag = cli.Uint64Flag{Name: "resume-chain", Usage: "restrict --resume-task to one chain id (0 = every configured chain)"}

	resumeFlag         = cli.BoolFlag{Name: "resume", Usage: "resume one specific bridge task identified by --resume-chain/--resume-block/--resume-tx/--resume-log-index, then exit"}
	resumeBlockFlag    = cli.Uint64Flag{Name: "resume-block", Usage: "block number of the event to resume with --resume"}
	resumeTxFlag       = cli.StringFlag{Name: "resume-tx", Usage: "transaction hash of the event to resume with --resume"}
	resumeLogIndexFlag = cli.UintFlag{Name: "resume-log-index", Usage: "log index of the event to resume with --resume"}

	sendFlag    = cli.BoolFlag{Name: "send", Usage: "publish synthetic test events instead of consuming"}
	numberFlag  = cli.IntFlag{Name: "number", Value: 1, Usage: "number of synthetic events to publish with --send"}
	messageFlag = cli.StringFlag{Name: "message", Value: "test", Usage: "event name to publish with --send"}
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "relayer-consume"
	cliApp.Usage = "drain the relayer queue and dispatch bridge transactions according to the configured rules"
	cliApp.Flags = []cli.Flag{
		configFlag, envFlag, abiFlag, dbFlag, debugFlag,
		watchFlag, resumeTaskFlag, resumeChainFlag,
		resumeFlag, resumeBlockFlag, resumeTxFlag, resumeLogIndexFlag,
		sendFlag, numberFlag, messageFlag,
	}
	cliApp.Action = runConsume

	if err := cliApp.Run(os.Args); err != nil {
		app.Fatalf("%v", err)
	}
}

func runConsume(ctx *cli.Context) error {
	rlog.SetDebug(ctx.GlobalBool(debugFlag.Name), os.Stderr)

	bootstrap, err := app.New(ctx.GlobalString(configFlag.Name), ctx.GlobalString(envFlag.Name), ctx.GlobalString(abiFlag.Name), ctx.GlobalString(dbFlag.Name))
	if err != nil {
		return err
	}

	q, err := bootstrap.DialQueue()
	if err != nil {
		return err
	}
	defer q.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if ctx.GlobalBool(sendFlag.Name) {
		return sendTestEvents(runCtx, q, ctx.GlobalInt(numberFlag.Name), ctx.GlobalString(messageFlag.Name))
	}

	ruleTable := rules.NewTable(bootstrap.Config.EventRules)
	errorTables := make(map[uint64]*dispatcher.ErrorTable, len(bootstrap.Config.Chains))
	for chainID, chainCfg := range bootstrap.Config.Chains {
		contractABI, err := chainCfg.ParsedABI()
		if err != nil {
			return err
		}
		errorTables[chainID] = dispatcher.NewErrorTable(contractABI)
	}
	disp := dispatcher.New(bootstrap.Chains, errorTables)
	c := consumer.New(ruleTable, bootstrap.Store, bootstrap.Chains, disp, consumer.DefaultActionBuilder, 1200*time.Second)

	if ctx.GlobalBool(resumeFlag.Name) {
		return c.ResumeBridgeTask(runCtx, q,
			ctx.GlobalUint64(resumeChainFlag.Name),
			ctx.GlobalUint64(resumeBlockFlag.Name),
			ctx.GlobalString(resumeTxFlag.Name),
			ctx.GlobalUint(resumeLogIndexFlag.Name))
	}

	if ctx.GlobalBool(resumeTaskFlag.Name) {
		resumeChain := ctx.GlobalUint64(resumeChainFlag.Name)
		if err := c.ResumeIncompleteTasks(runCtx, q, lookupEventFor(bootstrap.Store, resumeChain)); err != nil {
			return err
		}
	}

	return c.Run(runCtx, q)
}

// lookupEventFor recovers the Event a FAILED BridgeTask was built from:
// BridgeTask.AsID() and Event.AsKey() share the same block/tx/log-index
// encoding, so the task's own identity doubles as the event repository key.
// It rejects tasks from chains other than resumeChain when resumeChain is
// non-zero, matching --resume-chain's scoping.
func lookupEventFor(store interface {
	GetEvent(key string) (domain.Event, error)
}, resumeChain uint64) func(domain.BridgeTask) (domain.Event, error) {
	return func(task domain.BridgeTask) (domain.Event, error) {
		if resumeChain != 0 && task.ChainID != resumeChain {
			return domain.Event{}, fmt.Errorf("relayer: task %s belongs to chain %d, not %d", task.AsKey(), task.ChainID, resumeChain)
		}
		return store.GetEvent(task.AsID())
	}
}

// sendTestEvents publishes count synthetic events named eventName, the Go
// counterpart of register_event.py's manual test-producer CLI: a way to
// drive the consumer in isolation, without a live scanner.
func sendTestEvents(ctx context.Context, publisher interface {
	RegisterEvent(ctx context.Context, event []byte) error
}, count int, eventName string) error {
	for i := 0; i < count; i++ {
		event := domain.Event{
			EventName:   eventName,
			BlockNumber: uint64(i + 1),
			BlockDatetime: time.Now().UTC(),
			Data: domain.EventPayload{
				OperationHash: []byte(uuid.NewString()),
			},
		}
		raw, err := codec.EncodeEvent(event)
		if err != nil {
			return err
		}
		if err := publisher.RegisterEvent(ctx, raw); err != nil {
			return err
		}
		fmt.Printf("published test event %d/%d: %s\n", i+1, count, eventName)
	}
	return nil
}
