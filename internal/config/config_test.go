package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  host: "127.0.0.1"
jobStore:
  baseUrl: "https://jobs.example.com/api"
chain:
  chainId: 8453
  rpcEndpoints:
    - "https://mainnet.base.org"
  contracts:
    escrow: "0xD43650250cEDDAF79FF72F44d28e3082F72420Ab"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	require.NoError(t, LoadConfig(writeConfig(t, minimalYAML)))

	cfg := AppConfig
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8091, cfg.Server.Port)
	require.Equal(t, 15, cfg.JobStore.Timeout)
	require.Equal(t, "USDC", cfg.Chain.TokenSymbol)
	require.Equal(t, uint8(6), cfg.Chain.TokenDecimals)
	require.Equal(t, uint64(300000), cfg.Chain.GasLimit)
	require.Equal(t, 180, cfg.Chain.ConfirmTimeout)
	require.Equal(t, 2, cfg.Chain.PollInterval)
	require.Equal(t, "poster_tokens.json", cfg.Credentials.Path)
	require.Equal(t, "agent_index.db", cfg.AgentIndex.Path)
	require.Equal(t, 3, cfg.AgentIndex.SyncInterval)
	require.Equal(t, 200, cfg.Manifest.PlatformFeeBps)
}

func TestLoadConfigFileValuesWin(t *testing.T) {
	require.NoError(t, LoadConfig(writeConfig(t, minimalYAML+`
  tokenSymbol: "DAI"
  tokenDecimals: 18
  confirmTimeout: 60
`)))

	require.Equal(t, "DAI", AppConfig.Chain.TokenSymbol)
	require.Equal(t, uint8(18), AppConfig.Chain.TokenDecimals)
	require.Equal(t, 60, AppConfig.Chain.ConfirmTimeout)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	withEnv(t, "SERVER_PORT", "9000")
	withEnv(t, "JOBSTORE_BASE_URL", "https://staging.example.com/api")
	withEnv(t, "CHAIN_RPC_ENDPOINTS", "https://rpc-a.example.com, https://rpc-b.example.com,")
	withEnv(t, "CHAIN_ID", "84532")
	withEnv(t, "PRIVATE_KEY", "deadbeef")
	withEnv(t, "ESCROW_CONTRACT", "0x0000000000000000000000000000000000000001")
	withEnv(t, "POSTER_TOKENS_PATH", "/var/lib/gateway/tokens.json")
	withEnv(t, "NATS_URL", "nats://localhost:4222")
	withEnv(t, "CORS_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	require.NoError(t, LoadConfig(writeConfig(t, minimalYAML)))

	cfg := AppConfig
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "https://staging.example.com/api", cfg.JobStore.BaseURL)
	require.Equal(t, []string{"https://rpc-a.example.com", "https://rpc-b.example.com"}, cfg.Chain.RPCEndpoints)
	require.Equal(t, int64(84532), cfg.Chain.ChainID)
	require.Equal(t, "deadbeef", cfg.Chain.PrivateKey)
	require.Equal(t, "0x0000000000000000000000000000000000000001", cfg.Chain.Contracts.Escrow)
	require.Equal(t, "/var/lib/gateway/tokens.json", cfg.Credentials.Path)
	require.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfigInvalidEnvNumberIgnored(t *testing.T) {
	withEnv(t, "SERVER_PORT", "not-a-number")

	require.NoError(t, LoadConfig(writeConfig(t, minimalYAML)))
	require.Equal(t, 8091, AppConfig.Server.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	require.Error(t, LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	require.Error(t, LoadConfig(writeConfig(t, "server: [not: valid")))
}
