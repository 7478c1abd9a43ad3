// Package app wires the relayer's shared startup sequence — config, chain
// cache, repository, queue — the one piece both cmd/relayer-scan and
// cmd/relayer-consume need, grounded on klaytn's cmd/utils.Fatalf plus
// config.py's module-level _get_bridge_relayer_config().
package app

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/chain"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/config"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/queue"
	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/repository"
)

// Fatalf prints to stdout+stderr and exits 1, the same termination path
// klaytn's cmd/utils.Fatalf uses for unrecoverable CLI errors.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// Bootstrap holds every long-lived collaborator a relayer binary needs,
// built once at startup and threaded through by reference.
type Bootstrap struct {
	Config *config.Config
	Chains *chain.Cache
	Store  *repository.Store
}

// New loads configuration from the given paths, opens the repository's
// levelDB at dbPath, and seeds the chain cache — everything short of
// dialing a queue connection, which each binary opens itself through
// DialQueue.
func New(tomlPath, envPath, abiPath, dbPath string) (*Bootstrap, error) {
	cfg, err := config.Load(tomlPath, envPath, abiPath)
	if err != nil {
		return nil, fmt.Errorf("relayer: loading config: %w", err)
	}

	kv, err := repository.NewLevelDB(dbPath, 128, 128)
	if err != nil {
		return nil, fmt.Errorf("relayer: opening repository at %s: %w", dbPath, err)
	}

	return &Bootstrap{
		Config: cfg,
		Chains: chain.NewCache(cfg.Chains),
		Store:  repository.NewStore(kv),
	}, nil
}

// DialQueue opens the AMQP connection described by the loaded config,
// mirroring relayer_register_aio_pika.py's connect().
func (b *Bootstrap) DialQueue() (queue.Queue, error) {
	return queue.Dial(b.Config.Queue)
}
