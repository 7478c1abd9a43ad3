// Package config loads the relayer's TOML configuration file, grounded on
// original_source's config.py (get_toml_file/get_config_content/
// replace_placeholders/get_blockchain_config/get_register_config/
// get_relayer_event_rule) and on klaytn's cmd/ranger/config.go, the pack's
// own naoina/toml decoding pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/naoina/toml"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// tomlSettings mirrors klaytn's cmd/ranger/config.go: keep TOML keys
// identical to the lower_snake_case keys the TOML file itself uses rather
// than normalizing to Go's exported field casing.
var tomlSettings = toml.Config{
	NormFieldName: func(_ reflect.Type, key string) string { return key },
	FieldToKey:    func(_ reflect.Type, field string) string { return field },
}

// rawConfig is the TOML file's literal shape: one table per configured
// chain under relayer_blockchain, one register table, one table per event
// name under relayer_event_rules — the same three top-level tables
// config.py's _get_bridge_relayer_config dict carries.
type rawConfig struct {
	RelayerBlockchain  map[string]rawChain    `toml:"relayer_blockchain"`
	RelayerRegister    rawRegister            `toml:"relayer_register"`
	RelayerEventRules  map[string]rawEventRule `toml:"relayer_event_rules"`
}

type rawChain struct {
	RPCURL                        string `toml:"rpc_url"`
	ProjectID                     string `toml:"project_id"`
	PrivateKey                    string `toml:"pk"`
	WaitBlockValidation           uint64 `toml:"wait_block_validation"`
	BlockValidationSecondPerBlock uint64 `toml:"block_validation_second_per_block"`
	SmartContractAddress          string `toml:"smart_contract_address"`
	GenesisBlock                  uint64 `toml:"smart_contract_deployment_block"`
	Client                        string `toml:"client"`
}

type rawRegister struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	QueueName string `toml:"queue_name"`
}

type rawEventRule struct {
	Origin           string `toml:"origin"`
	HasBlockFinality bool   `toml:"has_block_finality"`
	ChainFuncName    string `toml:"chain_func_name"`
	FuncName         string `toml:"func_name"`
	FuncCondition    string `toml:"func_condition"`
	DependsOn        string `toml:"depends_on"`
}

// Config is the relayer's fully resolved, immutable configuration: every
// chain table keyed by chain id, the queue connection, and every event
// rule keyed by event name — the same three lookups config.py's
// get_blockchain_config/get_register_config/get_relayer_event_rule expose
// as separate functions, collapsed here into one value built once at
// startup and threaded through by reference.
type Config struct {
	Chains     map[uint64]domain.ChainConfig
	Queue      domain.QueueConfig
	EventRules map[string]domain.EventRuleConfig
}

// Load reads tomlPath (after loading envPath into the process environment
// and substituting ${VAR} placeholders in the TOML text) and attaches each
// chain's ABI JSON read from abiPath, mirroring get_abi's
// abi[str(chain_id)] lookup into a single JSON file keyed by chain id.
func Load(tomlPath, envPath, abiPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("relayer: loading env file %s: %w", envPath, err)
		}
	}

	content, err := os.ReadFile(tomlPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigTOMLFileMissing, tomlPath)
	}

	rendered := replacePlaceholders(string(content))

	var raw rawConfig
	if err := tomlSettings.Unmarshal([]byte(rendered), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfigTOMLFileMissing, tomlPath, err)
	}

	abis, err := loadABIs(abiPath)
	if err != nil {
		return nil, err
	}

	chains := make(map[uint64]domain.ChainConfig, len(raw.RelayerBlockchain))
	for key, v := range raw.RelayerBlockchain {
		chainID, err := chainIDFromTableName(key)
		if err != nil {
			continue
		}
		rawABI, ok := abis[chainID]
		if !ok {
			return nil, fmt.Errorf("%w: chain_id=%d", domain.ErrConfigABIAttributeMissing, chainID)
		}
		chains[chainID] = domain.ChainConfig{
			ChainID:                       chainID,
			RPCURL:                        v.RPCURL,
			ProjectID:                     v.ProjectID,
			PrivateKey:                    v.PrivateKey,
			WaitBlockValidation:           v.WaitBlockValidation,
			BlockValidationSecondPerBlock: v.BlockValidationSecondPerBlock,
			SmartContractAddress:          v.SmartContractAddress,
			GenesisBlock:                  v.GenesisBlock,
			ABI:                           rawABI,
			Client:                        v.Client,
		}
	}
	if len(chains) == 0 {
		return nil, domain.ErrConfigBlockchainDataMissing
	}

	rules := make(map[string]domain.EventRuleConfig, len(raw.RelayerEventRules))
	for name, v := range raw.RelayerEventRules {
		rules[name] = domain.EventRuleConfig{
			EventName:        name,
			Origin:           v.Origin,
			HasBlockFinality: v.HasBlockFinality,
			ChainFuncName:    v.ChainFuncName,
			FuncName:         v.FuncName,
			FuncCondition:    v.FuncCondition,
			DependsOn:        v.DependsOn,
		}
	}

	return &Config{
		Chains: chains,
		Queue: domain.QueueConfig{
			Host:      raw.RelayerRegister.Host,
			Port:      raw.RelayerRegister.Port,
			User:      raw.RelayerRegister.User,
			Password:  raw.RelayerRegister.Password,
			QueueName: raw.RelayerRegister.QueueName,
		},
		EventRules: rules,
	}, nil
}

// replacePlaceholders substitutes ${VAR} references in the raw TOML text
// with the current process environment, the Go stand-in for
// replace_placeholders' Jinja2 Template(...).render(os.environ) step (which
// uses {{ VAR }} syntax; os.Expand's ${VAR}/$VAR syntax is this codebase's
// one concession to stdlib-only templating, since the ecosystem examples
// carry no Go template-substitution library).
func replacePlaceholders(content string) string {
	return os.Expand(content, func(name string) string {
		return os.Getenv(name)
	})
}

// chainIDFromTableName parses "chainid1" -> 1, mirroring get_blockchain_config's
// `k.lower() != f"chainid{chain_id}"` table-name match.
func chainIDFromTableName(name string) (uint64, error) {
	const prefix = "chainid"
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, prefix) {
		return 0, fmt.Errorf("relayer: unexpected blockchain table name %q", name)
	}
	var chainID uint64
	if _, err := fmt.Sscanf(lower[len(prefix):], "%d", &chainID); err != nil {
		return 0, fmt.Errorf("relayer: unexpected blockchain table name %q: %w", name, err)
	}
	return chainID, nil
}

func loadABIs(abiPath string) (map[uint64]string, error) {
	content, err := os.ReadFile(abiPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigABIFileMissing, abiPath)
	}
	return decodeABIFile(content)
}

// AbsPath resolves path relative to the directory containing base (the
// config file), mirroring get_config_content's
// `pathlib.Path(__file__).parent / toml_file` resolution against a fixed
// base directory rather than the process's current working directory.
func AbsPath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(base), path)
}
