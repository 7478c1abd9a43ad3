// Command relayer-scan drives one chain's event scanner: fetch bridge
// event logs in adaptive chunks, persist them and publish new ones to the
// queue. Grounded on original_source's bin/event_scanner.py for the
// entry-point shape and on klaytn's cmd/kcn/main.go for the
// urfave/cli.v1 App wiring.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/urfave/cli.v1"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/app"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/rlog"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/scanner"
)

var (
	configFlag = cli.StringFlag{Name: "config", Value: "bridge_relayer_config.toml", Usage: "TOML configuration file"}
	envFlag    = cli.StringFlag{Name: "env", Value: ".env", Usage: "dotenv file substituted into the TOML config"}
	abiFlag    = cli.StringFlag{Name: "abi", Value: "abi.json", Usage: "bridge contract ABI, keyed by chain id"}
	dbFlag     = cli.StringFlag{Name: "db", Value: "relayer-db", Usage: "repository data directory"}

	chainIDFlag = cli.Uint64Flag{Name: "chain-id", Usage: "chain id to scan (required)"}
	debugFlag   = cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"}
	resumeFlag  = cli.BoolFlag{Name: "resume", Usage: "resume from the last persisted checkpoint instead of the chain tip"}
	onceFlag    = cli.BoolFlag{Name: "once", Usage: "scan a single range and exit, instead of running as a service"}
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "relayer-scan"
	cliApp.Usage = "scan a bridge contract's event logs and publish them to the relayer queue"
	cliApp.Flags = []cli.Flag{configFlag, envFlag, abiFlag, dbFlag, chainIDFlag, debugFlag, resumeFlag, onceFlag}
	cliApp.Action = runScan

	if err := cliApp.Run(os.Args); err != nil {
		app.Fatalf("%v", err)
	}
}

func runScan(ctx *cli.Context) error {
	rlog.SetDebug(ctx.GlobalBool(debugFlag.Name), os.Stderr)

	chainID := ctx.GlobalUint64(chainIDFlag.Name)
	if chainID == 0 {
		return fmt.Errorf("relayer-scan: --chain-id is required")
	}

	bootstrap, err := app.New(ctx.GlobalString(configFlag.Name), ctx.GlobalString(envFlag.Name), ctx.GlobalString(abiFlag.Name), ctx.GlobalString(dbFlag.Name))
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chainCfg, err := bootstrap.Chains.ConfigOf(chainID)
	if err != nil {
		return err
	}
	contractABI, err := chainCfg.ParsedABI()
	if err != nil {
		return err
	}
	topics, err := eventTopics(contractABI)
	if err != nil {
		return err
	}
	provider, err := bootstrap.Chains.Get(runCtx, chainID)
	if err != nil {
		return err
	}
	publisher, err := bootstrap.DialQueue()
	if err != nil {
		return err
	}
	defer publisher.Close()

	cfg := scanner.Config{
		ChainID:           chainID,
		MinScanChunkSize:  10,
		MaxScanChunkSize:  10_000,
		ChunkSizeIncrease: 2.0,
		MaxRequestRetries: 30,
		BlockToDelete:     10,
		StartChunkSize:    20,
		GenesisBlock:      chainCfg.GenesisBlock,
		ContractAddress:   common.HexToAddress(chainCfg.SmartContractAddress).Bytes(),
		Topics:            topics,
	}
	s := scanner.New(cfg, provider, publisher, bootstrap.Store, &scanner.ABIResolver{Contract: contractABI})

	if ctx.GlobalBool(onceFlag.Name) {
		startBlock := chainCfg.GenesisBlock
		endBlock, err := provider.CurrentBlockNumber(runCtx)
		if err != nil {
			return err
		}
		result, err := s.ScanOnce(runCtx, startBlock, endBlock)
		if err != nil {
			return err
		}
		fmt.Printf("scanned %d events across %d chunks\n", len(result.Events), result.ChunksScanned)
		return nil
	}

	return s.Run(runCtx, ctx.GlobalBool(resumeFlag.Name))
}

// eventTopics mirrors construct_event_filter_params's event-name filter:
// restrict eth_getLogs to topic0 hashes the contract ABI actually declares,
// so the scanner never has to decode logs from events it doesn't know. It
// returns ErrEventsNotFound when the ABI declares no events at all, since an
// empty topic filter would otherwise silently widen eth_getLogs to match
// every log in the range instead of filtering anything.
func eventTopics(contractABI abi.ABI) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(contractABI.Events))
	for _, event := range contractABI.Events {
		topics = append(topics, event.ID)
	}
	if len(topics) == 0 {
		return nil, domain.ErrEventsNotFound
	}
	return topics, nil
}
