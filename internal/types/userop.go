// Package types provides common types and response structures for the walletkit service.
package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// WalletJSONRPCRequest represents a JSON-RPC request specific to the wallet sidecar.
type WalletJSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"` // Method parameters, a positional array.
	ID      interface{}     `json:"id,omitempty"`
}

// WalletJSONRPCResponse represents a JSON-RPC response specific to the wallet sidecar.
type WalletJSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError represents a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// UserOperation is an EntryPoint v0.6 user operation. The field order matches the
// on-chain tuple and must not change: the canonical operation hash is defined over
// exactly this ordering.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *big.Int       `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *big.Int       `json:"callGasLimit"`
	VerificationGasLimit *big.Int       `json:"verificationGasLimit"`
	PreVerificationGas   *big.Int       `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// BlockInformation is the caller-supplied reference point used to anchor the
// signature validity window. BaseFee is unused by the codec but carried for
// fee estimation on the caller side.
type BlockInformation struct {
	Number    uint64   `json:"number"`
	Timestamp uint64   `json:"timestamp"`
	BaseFee   *big.Int `json:"baseFee"`
}

// ConfirmationEvent is a decoded execution event observed on-chain. A zero
// TransactionHash means no matching event was found.
type ConfirmationEvent struct {
	TransactionHash common.Hash `json:"transactionHash"`
	BlockNumber     uint64      `json:"blockNumber"`
	OperationHash   common.Hash `json:"operationHash"`
	Success         bool        `json:"success"`
}

// Matched reports whether the event carries a transaction hash.
func (e *ConfirmationEvent) Matched() bool {
	return e != nil && e.TransactionHash != (common.Hash{})
}
