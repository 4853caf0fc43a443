// Package waiter implements the bounded polling loop that waits for the
// on-chain event confirming execution of a submitted user operation.
package waiter

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/safewallet/walletkit/internal/types"
)

// DefaultLookbackBlocks is how far behind the current head the event filter
// starts, to tolerate minor reorgs and lagging endpoints.
const DefaultLookbackBlocks = 100

// State is the waiter's terminal disposition.
type State int

const (
	// StatePolling means the waiter is still querying the event log.
	StatePolling State = iota
	// StateFound means a matching event was observed and delivered.
	StateFound
	// StateTimedOut means the deadline elapsed with no matching event.
	StateTimedOut
)

// EventSource is the event-log capability the waiter polls. NextEvent returns
// at most one event per call and nil when nothing matches yet.
type EventSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	NextEvent(ctx context.Context, contract common.Address, eventSignature string, fromBlock uint64) (*types.ConfirmationEvent, error)
}

// WaitRequest bounds a single wait: total wall-clock budget, polling cadence
// and how far behind the head the filter starts.
type WaitRequest struct {
	Deadline       time.Duration
	PollInterval   time.Duration
	LookbackBlocks uint64
}

// Filter identifies the execution event to wait for.
type Filter struct {
	Contract       common.Address
	EventSignature string
}

// Result is the single outcome of a wait. Event is nil unless State is StateFound.
type Result struct {
	State State
	Event *types.ConfirmationEvent
}

// Waiter polls an EventSource until a matching event appears or the deadline
// elapses. Each wait request runs in its own goroutine with its own cadence;
// there is no shared state across waits.
type Waiter struct {
	source EventSource
}

// New creates a Waiter over the given event source.
func New(source EventSource) *Waiter {
	return &Waiter{source: source}
}

// Wait starts polling and returns a channel that delivers at most one Result
// and is then closed. Timeout is a normal terminal state, delivered as a
// Result with StateTimedOut and no event. Cancelling ctx stops the loop
// without delivering anything; the channel is closed so receivers unblock.
func (w *Waiter) Wait(ctx context.Context, req WaitRequest, filter Filter) <-chan Result {
	results := make(chan Result, 1)
	go w.poll(ctx, req, filter, results)
	return results
}

func (w *Waiter) poll(ctx context.Context, req WaitRequest, filter Filter, results chan<- Result) {
	defer close(results)

	lookback := req.LookbackBlocks
	if lookback == 0 {
		lookback = DefaultLookbackBlocks
	}
	deadline := time.Now().Add(req.Deadline)

	timer := time.NewTimer(req.PollInterval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var (
		fromBlock    uint64
		fromResolved bool
	)

	for {
		if ctx.Err() != nil {
			return
		}

		// Resolve the starting block lazily so a transient head-query failure
		// does not abort the whole wait.
		if !fromResolved {
			head, err := w.source.BlockNumber(ctx)
			if err != nil {
				log.Debug("failed to fetch block number, retrying next poll", "error", err)
			} else {
				if head > lookback {
					fromBlock = head - lookback
				}
				fromResolved = true
			}
		}

		if fromResolved {
			event, err := w.source.NextEvent(ctx, filter.Contract, filter.EventSignature, fromBlock)
			if err != nil {
				log.Debug("event query failed, retrying next poll", "contract", filter.Contract, "error", err)
			} else if event.Matched() {
				results <- Result{State: StateFound, Event: event}
				return
			}
		}

		timer.Reset(req.PollInterval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !time.Now().Before(deadline) {
			results <- Result{State: StateTimedOut}
			return
		}
	}
}
