package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/safewallet/walletkit/internal/types"
)

// UserOperationEventSignature is the EntryPoint event emitted once a user
// operation has been executed.
const UserOperationEventSignature = "UserOperationEvent(bytes32,address,address,uint256,bool,uint256,uint256)"

// NextEvent returns the first event matching contract and eventSignature at or
// after fromBlock, or nil when none exists yet. One result per call; each poll
// attempt restarts the query.
func (c *Client) NextEvent(ctx context.Context, contract common.Address, eventSignature string, fromBlock uint64) (*types.ConfirmationEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{crypto.Keccak256Hash([]byte(eventSignature))}},
	}
	logs, err := c.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return decodeConfirmationEvent(&logs[0]), nil
}

// LatestBlockInformation returns the reference point for the signature validity
// window: the latest block's number, timestamp and base fee.
func (c *Client) LatestBlockInformation(ctx context.Context) (*types.BlockInformation, error) {
	header, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest header: %w", err)
	}
	return &types.BlockInformation{
		Number:    header.Number.Uint64(),
		Timestamp: header.Time,
		BaseFee:   header.BaseFee,
	}, nil
}

// decodeConfirmationEvent extracts the fields walletkit cares about from a
// UserOperationEvent log. Topic layout: [signature, userOpHash, sender,
// paymaster]; data layout: nonce(32) || success(32) || gas cost/used.
func decodeConfirmationEvent(lg *ethtypes.Log) *types.ConfirmationEvent {
	ev := &types.ConfirmationEvent{
		TransactionHash: lg.TxHash,
		BlockNumber:     lg.BlockNumber,
	}
	if len(lg.Topics) > 1 {
		ev.OperationHash = lg.Topics[1]
	}
	if len(lg.Data) >= 64 {
		ev.Success = lg.Data[63] == 1
	}
	return ev
}
