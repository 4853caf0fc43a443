// Package chain provides the blockchain capability boundary for walletkit. The
// wallet core depends only on the small read interfaces defined here, so it can
// be exercised with deterministic fakes; Client is the production implementation
// backed by one or more JSON-RPC endpoints.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
)

// Backend is the subset of ethclient.Client the chain layer uses.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
}

// Client fans requests out over a list of RPC endpoints. An endpoint that fails
// is quarantined and skipped on subsequent requests; the quarantine set is
// cleared once every endpoint is in it, so a full outage degrades to retrying
// the whole list instead of failing permanently.
type Client struct {
	mu          sync.Mutex
	backends    []Backend
	quarantined *bitset.BitSet
}

// Dial connects to each RPC URL and returns a failover client.
func Dial(urls []string) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("no RPC URLs configured")
	}
	backends := make([]Backend, 0, len(urls))
	for _, url := range urls {
		ec, err := ethclient.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("failed to dial RPC endpoint %s: %w", url, err)
		}
		backends = append(backends, ec)
	}
	return NewClient(backends...), nil
}

// NewClient wraps already constructed backends, mainly for tests.
func NewClient(backends ...Backend) *Client {
	return &Client{
		backends:    backends,
		quarantined: bitset.New(uint(len(backends))),
	}
}

// do runs fn against the first healthy endpoint, quarantining failures and
// falling through to the next. Each endpoint is tried at most once per call.
func (c *Client) do(fn func(Backend) error) error {
	var lastErr error
	for attempt := 0; attempt < len(c.backends); attempt++ {
		idx, ok := c.nextHealthy()
		if !ok {
			break
		}
		if err := fn(c.backends[idx]); err != nil {
			lastErr = err
			c.quarantine(idx)
			log.Warn("RPC endpoint failed, quarantining", "endpoint", idx, "error", err)
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no healthy RPC endpoints")
	}
	return lastErr
}

func (c *Client) nextHealthy() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < len(c.backends); i++ {
		if !c.quarantined.Test(uint(i)) {
			return i, true
		}
	}
	// All endpoints quarantined: clear and start over.
	c.quarantined.ClearAll()
	if len(c.backends) == 0 {
		return 0, false
	}
	return 0, true
}

func (c *Client) quarantine(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quarantined.Set(uint(idx))
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.do(func(b Backend) error {
		var callErr error
		number, callErr = b.BlockNumber(ctx)
		return callErr
	})
	return number, err
}

// CallContract performs an eth_call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var ret []byte
	err := c.do(func(b Backend) error {
		var callErr error
		ret, callErr = b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return callErr
	})
	return ret, err
}

// FilterLogs queries the event log.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	var logs []ethtypes.Log
	err := c.do(func(b Backend) error {
		var callErr error
		logs, callErr = b.FilterLogs(ctx, q)
		return callErr
	})
	return logs, err
}

// HeaderByNumber returns the header of the given block, or the latest header
// when number is nil.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	var header *ethtypes.Header
	err := c.do(func(b Backend) error {
		var callErr error
		header, callErr = b.HeaderByNumber(ctx, number)
		return callErr
	})
	return header, err
}
