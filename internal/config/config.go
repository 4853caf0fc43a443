// Package config provides the configuration for the walletkit sidecar.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

// Config represents the configuration for walletkit.
type Config struct {
	APIKeys           []string       `json:"api_keys"`
	EntryPointAddress common.Address `json:"entrypoint_address"`
	ChainID           int64          `json:"chain_id"`
	RateLimiterQPS    int64          `json:"rate_limiter_qps"`
	EthereumRPCURLs   []string       `json:"ethereum_rpc_urls"`

	// Confirmation-wait defaults; per-request values override them.
	WaitDeadlineMs      int64  `json:"wait_deadline_ms"`
	PollIntervalMs      int64  `json:"poll_interval_ms"`
	EventLookbackBlocks uint64 `json:"event_lookback_blocks"`
}

// NewConfig return an unmarshalled config instance.
func NewConfig(file string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	cfg := Config{}
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// applyEnvOverrides lets deployment environments override the RPC endpoints
// and API keys without editing the config file.
func (c *Config) applyEnvOverrides() {
	if urls := os.Getenv("WALLETKIT_RPC_URL"); urls != "" {
		c.EthereumRPCURLs = []string{urls}
	}
	if key := os.Getenv("WALLETKIT_API_KEY"); key != "" {
		c.APIKeys = append(c.APIKeys, key)
	}
}
