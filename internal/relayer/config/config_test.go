package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[relayer_blockchain.ChainId80002]
rpc_url = "${TEST_RPC_URL}"
project_id = "abc"
pk = "${TEST_PK}"
wait_block_validation = 6
block_validation_second_per_block = 2
smart_contract_address = "0x0000000000000000000000000000000000000a"
smart_contract_deployment_block = 100
client = "PoA"

[relayer_register]
host = "localhost"
port = 5672
user = "guest"
password = "guest"
queue_name = "bridge.relayer.events"

[relayer_event_rules.OperationCreated]
origin = "chainIdFrom"
has_block_finality = true
chain_func_name = "chainIdTo"
func_name = "completeOperation"
depends_on = ""
`

const sampleABIFile = `{"80002": [{"type":"function","name":"completeOperation","inputs":[],"outputs":[]}]}`

func writeFixtures(t *testing.T) (tomlPath, abiPath string) {
	t.Helper()
	dir := t.TempDir()

	tomlPath = filepath.Join(dir, "bridge_relayer_config.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(sampleTOML), 0o644))

	abiPath = filepath.Join(dir, "abi.json")
	require.NoError(t, os.WriteFile(abiPath, []byte(sampleABIFile), 0o644))

	return tomlPath, abiPath
}

func TestLoadResolvesChainsQueueAndRules(t *testing.T) {
	t.Setenv("TEST_RPC_URL", "https://rpc.example")
	t.Setenv("TEST_PK", "0xsecret")

	tomlPath, abiPath := writeFixtures(t)

	cfg, err := Load(tomlPath, "", abiPath)
	require.NoError(t, err)

	chain, ok := cfg.Chains[80002]
	require.True(t, ok)
	require.Equal(t, "https://rpc.example", chain.RPCURL)
	require.Equal(t, "0xsecret", chain.PrivateKey)
	require.Equal(t, uint64(100), chain.GenesisBlock)
	require.NotEmpty(t, chain.ABI)

	require.Equal(t, "localhost", cfg.Queue.Host)
	require.Equal(t, "bridge.relayer.events", cfg.Queue.QueueName)

	rule, ok := cfg.EventRules["OperationCreated"]
	require.True(t, ok)
	require.True(t, rule.HasBlockFinality)
	require.Equal(t, "completeOperation", rule.FuncName)
}

func TestLoadMissingTOMLFile(t *testing.T) {
	_, abiPath := writeFixtures(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), "", abiPath)
	require.Error(t, err)
}

func TestLoadMissingABIForConfiguredChain(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "bridge_relayer_config.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(sampleTOML), 0o644))

	abiPath := filepath.Join(dir, "abi.json")
	require.NoError(t, os.WriteFile(abiPath, []byte(`{"1": []}`), 0o644))

	_, err := Load(tomlPath, "", abiPath)
	require.Error(t, err)
}

func TestAbsPathResolvesRelativeToBase(t *testing.T) {
	got := AbsPath("/etc/relayer/bridge_relayer_config.toml", "abi.json")
	require.Equal(t, "/etc/relayer/abi.json", got)

	got = AbsPath("/etc/relayer/bridge_relayer_config.toml", "/abs/abi.json")
	require.Equal(t, "/abs/abi.json", got)
}
