package config

import (
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}

func TestNewConfig(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		configContent := `{
			"api_keys": ["key1", "key2", "key3"],
			"entrypoint_address": "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789",
			"chain_id": 534351,
			"rate_limiter_qps": 1000,
			"ethereum_rpc_urls": [
				"https://ethereum-rpc.publicnode.com",
				"https://eth-mainnet.public.blastapi.io",
				"https://eth.drpc.org"
			],
			"wait_deadline_ms": 120000,
			"poll_interval_ms": 3000,
			"event_lookback_blocks": 100
		}`

		cfg, err := NewConfig(writeTempConfig(t, configContent))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, []string{"key1", "key2", "key3"}, cfg.APIKeys)
		assert.Equal(t, common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"), cfg.EntryPointAddress)
		assert.Equal(t, int64(534351), cfg.ChainID)
		assert.Equal(t, int64(1000), cfg.RateLimiterQPS)

		expectedRPCURLs := []string{
			"https://ethereum-rpc.publicnode.com",
			"https://eth-mainnet.public.blastapi.io",
			"https://eth.drpc.org",
		}
		assert.Equal(t, expectedRPCURLs, cfg.EthereumRPCURLs)

		assert.Equal(t, int64(120000), cfg.WaitDeadlineMs)
		assert.Equal(t, int64(3000), cfg.PollIntervalMs)
		assert.Equal(t, uint64(100), cfg.EventLookbackBlocks)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("WALLETKIT_RPC_URL", "https://rpc.example.org")
		t.Setenv("WALLETKIT_API_KEY", "env-key")

		cfg, err := NewConfig(writeTempConfig(t, `{
			"api_keys": ["key1"],
			"ethereum_rpc_urls": ["https://eth.drpc.org"]
		}`))
		require.NoError(t, err)

		assert.Equal(t, []string{"https://rpc.example.org"}, cfg.EthereumRPCURLs)
		assert.Equal(t, []string{"key1", "env-key"}, cfg.APIKeys)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewConfig("/nonexistent/config.json")
		assert.Error(t, err)
	})
}
