package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig is one [relayer_blockchain.chainidN] TOML table, resolved with
// its ABI attached (config.get_blockchain_config loads the two together).
type ChainConfig struct {
	ChainID                       uint64
	RPCURL                        string
	ProjectID                     string
	PrivateKey                    string
	WaitBlockValidation           uint64
	BlockValidationSecondPerBlock uint64
	SmartContractAddress          string
	GenesisBlock                  uint64
	ABI                           string // raw ABI JSON for this chain id
	Client                        string
}

func (c ChainConfig) String() string { return fmt.Sprintf("ChainId%d", c.ChainID) }

// ParsedABI parses the chain's raw ABI JSON once per call; the config
// package loads it from disk but keeps it as a string so ChainConfig stays
// a plain data holder the same way get_abi returns a bare dict in Python.
func (c ChainConfig) ParsedABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(c.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: chain_id=%d: %v", ErrConfigABIAttributeMissing, c.ChainID, err)
	}
	return parsed, nil
}

// ContractAddressParsed returns the configured bridge contract address.
func (c ChainConfig) ContractAddressParsed() common.Address {
	return common.HexToAddress(c.SmartContractAddress)
}

// QueueConfig is the [relayer_register] TOML table: the AMQP connection the
// scanner publishes to and the consumer reads from.
type QueueConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	QueueName string
}

// URL builds the amqp:// DSN streadway/amqp.Dial expects.
func (q QueueConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", q.User, q.Password, q.Host, q.Port)
}

// EventRuleConfig is one [relayer_event_rules.<event_name>] TOML table: the
// rules engine's only per-event-name branching point (consume_events.py's
// manage_event_with_rules reads exactly these fields).
type EventRuleConfig struct {
	EventName         string
	Origin            string // "source" chain event is expected to be seen on
	HasBlockFinality  bool
	ChainFuncName     string // payload side ("chainIdFrom"/"chainIdTo") naming the dispatch target chain, optional
	FuncName          string // contract method to dispatch, optional
	FuncCondition     string // optional guard expression name
	DependsOn         string // event name this one's dispatch is gated on, optional
}
