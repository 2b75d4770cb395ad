package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadHarness_Defaults(t *testing.T) {
	t.Setenv(EnvChainID, "pulsar-3")
	t.Setenv(EnvRPCURL, "http://localhost:26657")
	t.Setenv(EnvMnemonic, testMnemonic)

	path := writeFile(t, "harness.yaml", `
contracts:
  token:
    code_path: ./snip20.wasm.gz
  contest:
    code_path: ./contest.wasm.gz
scenario:
  oracle_key: "01"
`)

	cfg, err := LoadHarness(path)
	require.NoError(t, err)

	assert.Equal(t, "pulsar-3", cfg.Chain.ChainID)
	assert.Equal(t, "secret", cfg.Chain.Bech32Prefix)
	assert.EqualValues(t, 529, cfg.Chain.CoinType)
	assert.Equal(t, "USDC", cfg.Contracts.Token.Symbol)
	assert.EqualValues(t, 18, cfg.Contracts.Token.Decimals)
	assert.Equal(t, "ABCDEFGH", cfg.Contracts.Contest.OracleContract)
	assert.Equal(t, "10000000000", cfg.Scenario.MintAmount)
	assert.Equal(t, "1000", cfg.Scenario.CreationAmount)
	assert.EqualValues(t, 1, cfg.Scenario.Contest.ID)
	assert.Len(t, cfg.Scenario.Contest.Options, 2)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Chain.DevResolve)
}

func TestExampleConfigs(t *testing.T) {
	t.Setenv(EnvChainID, "")
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvMnemonic, "")

	_, err := LoadHarness(filepath.Join("..", "..", "config.harness.yaml"))
	require.Error(t, err, "shipped config must not carry a mnemonic")

	t.Setenv(EnvMnemonic, testMnemonic)
	harness, err := LoadHarness(filepath.Join("..", "..", "config.harness.yaml"))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, harness.Chain.Mnemonic)
	assert.True(t, harness.Chain.DevResolve)
	assert.NotEmpty(t, harness.Scenario.SignatureHex)

	devchain, err := LoadDevchain(filepath.Join("..", "..", "config.devchain.yaml"))
	require.NoError(t, err)
	assert.Equal(t, harness.Chain.ChainID, devchain.ChainID)
	assert.Equal(t, "0.0.0.0:26657", devchain.Server.Address())
	assert.Len(t, devchain.Programs, 2)
}

func TestLoadHarness_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvChainID, "secret-4")
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvMnemonic, "")

	path := writeFile(t, "harness.yaml", `
chain:
  chain_id: pulsar-3
  rpc_url: http://node:26657
  mnemonic: "`+testMnemonic+`"
contracts:
  token:
    address: secret1token
    code_hash: abcd
  contest:
    code_path: ./contest.wasm.gz
scenario:
  signature_hex: "aabb"
`)

	cfg, err := LoadHarness(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-4", cfg.Chain.ChainID)
	assert.Equal(t, "http://node:26657", cfg.Chain.RPCURL)
	assert.True(t, cfg.Contracts.Token.Attached())
}

func TestLoadHarness_RequiredFields(t *testing.T) {
	t.Setenv(EnvChainID, "")
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvMnemonic, "")

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing mnemonic",
			yaml: `
chain:
  chain_id: pulsar-3
  rpc_url: http://node:26657
contracts:
  token: {code_path: a}
  contest: {code_path: b}
scenario: {oracle_key: "01"}
`,
		},
		{
			name: "missing rpc url without simulate",
			yaml: `
chain:
  chain_id: pulsar-3
  mnemonic: "` + testMnemonic + `"
contracts:
  token: {code_path: a}
  contest: {code_path: b}
scenario: {oracle_key: "01"}
`,
		},
		{
			name: "contract without source",
			yaml: `
chain:
  chain_id: pulsar-3
  rpc_url: http://node:26657
  mnemonic: "` + testMnemonic + `"
contracts:
  contest: {code_path: b}
scenario: {oracle_key: "01"}
`,
		},
		{
			name: "non numeric amount",
			yaml: `
chain:
  chain_id: pulsar-3
  rpc_url: http://node:26657
  mnemonic: "` + testMnemonic + `"
contracts:
  token: {code_path: a}
  contest: {code_path: b}
scenario: {oracle_key: "01", bet_amount: "ten"}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHarness(writeFile(t, "harness.yaml", tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadHarness_SimulateSkipsRPCURL(t *testing.T) {
	t.Setenv(EnvChainID, "")
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvMnemonic, "")

	path := writeFile(t, "harness.yaml", `
chain:
  chain_id: secretdev-1
  mnemonic: "`+testMnemonic+`"
  simulate: true
contracts:
  token: {code_path: a}
  contest: {code_path: b}
`)
	cfg, err := LoadHarness(path)
	require.NoError(t, err)
	assert.True(t, cfg.Chain.Simulate)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvMnemonic, "")
	os.Unsetenv(EnvMnemonic)

	path := writeFile(t, ".env", "MNEMONIC=\""+testMnemonic+"\"\n")
	require.NoError(t, LoadEnv("", filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, testMnemonic, os.Getenv(EnvMnemonic))
}

func TestLoadDevchain(t *testing.T) {
	path := writeFile(t, "devchain.yaml", `
server:
  port: 8545
programs:
  - code_path: ./snip20.wasm.gz
    program: snip20
  - code_path: ./contest.wasm.gz
    program: contest
`)
	cfg, err := LoadDevchain(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8545", cfg.Server.Address())
	assert.Equal(t, "secretdev-1", cfg.ChainID)
	assert.Len(t, cfg.Programs, 2)

	_, err = LoadDevchain(writeFile(t, "bad.yaml", `
programs:
  - code_path: ./x.wasm.gz
    program: cw721
`))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "console"})
	require.Error(t, err)
}
