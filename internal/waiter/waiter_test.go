package waiter

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewallet/walletkit/internal/types"
)

func init() {
	handler := log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	handler = log.LvlFilterHandler(log.LvlError, handler)
	log.Root().SetHandler(handler)
}

var testContract = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")

// fakeSource serves a scripted sequence of poll outcomes.
type fakeSource struct {
	mu        sync.Mutex
	head      uint64
	events    []*types.ConfirmationEvent // one entry per poll, nil = no event yet
	polls     int
	fromBlock []uint64
}

func (f *fakeSource) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeSource) NextEvent(_ context.Context, _ common.Address, _ string, fromBlock uint64) (*types.ConfirmationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fromBlock = append(f.fromBlock, fromBlock)
	f.polls++
	if f.polls <= len(f.events) {
		return f.events[f.polls-1], nil
	}
	return nil, nil
}

func (f *fakeSource) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func testRequest() WaitRequest {
	return WaitRequest{
		Deadline:     200 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
	}
}

func testFilter() Filter {
	return Filter{Contract: testContract, EventSignature: "UserOperationEvent(bytes32,address,address,uint256,bool,uint256,uint256)"}
}

func TestWaitTimesOut(t *testing.T) {
	source := &fakeSource{head: 1000}
	w := New(source)

	start := time.Now()
	results := w.Wait(context.Background(), testRequest(), testFilter())

	result, ok := <-results
	elapsed := time.Since(start)
	require.True(t, ok)
	assert.Equal(t, StateTimedOut, result.State)
	assert.Nil(t, result.Event)

	// Bounded overshoot: deadline plus at most one poll interval (plus slack).
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 350*time.Millisecond)

	// Exactly one result, then the channel closes.
	_, ok = <-results
	assert.False(t, ok)
}

func TestWaitFindsEventOnSecondPoll(t *testing.T) {
	event := &types.ConfirmationEvent{
		TransactionHash: common.HexToHash("0xabc1"),
		BlockNumber:     995,
		Success:         true,
	}
	source := &fakeSource{head: 1000, events: []*types.ConfirmationEvent{nil, event}}
	w := New(source)

	results := w.Wait(context.Background(), testRequest(), testFilter())
	result, ok := <-results
	require.True(t, ok)
	assert.Equal(t, StateFound, result.State)
	require.NotNil(t, result.Event)
	assert.Equal(t, event.TransactionHash, result.Event.TransactionHash)

	_, ok = <-results
	assert.False(t, ok)

	// No further polling after delivery.
	polls := source.pollCount()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, polls, source.pollCount())
	assert.Equal(t, 2, polls)
}

func TestWaitCancellationDeliversNothing(t *testing.T) {
	source := &fakeSource{head: 1000}
	w := New(source)

	ctx, cancel := context.WithCancel(context.Background())
	results := w.Wait(ctx, testRequest(), testFilter())

	// Let the first poll happen, then cancel before any match.
	time.Sleep(20 * time.Millisecond)
	cancel()

	result, ok := <-results
	assert.False(t, ok, "cancellation must close the channel without a result, got %+v", result)

	// The loop has stopped polling.
	polls := source.pollCount()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, polls, source.pollCount())
}

func TestWaitStartsLookbackBehindHead(t *testing.T) {
	event := &types.ConfirmationEvent{TransactionHash: common.HexToHash("0x01")}
	source := &fakeSource{head: 1000, events: []*types.ConfirmationEvent{event}}
	w := New(source)

	result := <-w.Wait(context.Background(), testRequest(), testFilter())
	assert.Equal(t, StateFound, result.State)
	require.NotEmpty(t, source.fromBlock)
	assert.Equal(t, uint64(1000-DefaultLookbackBlocks), source.fromBlock[0])
}

func TestWaitLookbackClampedAtGenesis(t *testing.T) {
	event := &types.ConfirmationEvent{TransactionHash: common.HexToHash("0x01")}
	source := &fakeSource{head: 42, events: []*types.ConfirmationEvent{event}}
	w := New(source)

	result := <-w.Wait(context.Background(), testRequest(), testFilter())
	assert.Equal(t, StateFound, result.State)
	require.NotEmpty(t, source.fromBlock)
	assert.Equal(t, uint64(0), source.fromBlock[0])
}

func TestWaitCustomLookback(t *testing.T) {
	event := &types.ConfirmationEvent{TransactionHash: common.HexToHash("0x01")}
	source := &fakeSource{head: 1000, events: []*types.ConfirmationEvent{event}}
	w := New(source)

	req := testRequest()
	req.LookbackBlocks = 10
	result := <-w.Wait(context.Background(), req, testFilter())
	assert.Equal(t, StateFound, result.State)
	assert.Equal(t, uint64(990), source.fromBlock[0])
}
