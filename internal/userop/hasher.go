// Package userop computes the canonical hash of a user operation as defined by
// the EntryPoint contract. The package owns only the field ordering and the
// substitution of the raw signature with its Safe-wrapped form; the hash itself
// is computed on-chain by the EntryPoint, which this package reaches through a
// narrow contract-call capability.
package userop

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/safewallet/walletkit/internal/types"
)

// ErrHashingUnavailable is returned when the EntryPoint hash capability cannot
// be reached. The caller decides whether to retry.
var ErrHashingUnavailable = errors.New("entrypoint hashing unavailable")

// ContractCaller is the read-only contract-call capability the hasher needs.
type ContractCaller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// getUserOpHashSelector is the 4-byte selector of
// getUserOpHash((address,uint256,bytes,bytes,uint256,uint256,uint256,uint256,uint256,bytes,bytes)).
var getUserOpHashSelector = crypto.Keccak256(
	[]byte("getUserOpHash((address,uint256,bytes,bytes,uint256,uint256,uint256,uint256,uint256,bytes,bytes))"),
)[:4]

// userOpTupleArgs describes the user operation tuple in its canonical order.
// The hash input is defined over exactly this ordering; do not reorder.
var userOpTupleArgs = func() abi.Arguments {
	tuple, _ := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "sender", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "initCode", Type: "bytes"},
		{Name: "callData", Type: "bytes"},
		{Name: "callGasLimit", Type: "uint256"},
		{Name: "verificationGasLimit", Type: "uint256"},
		{Name: "preVerificationGas", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymasterAndData", Type: "bytes"},
		{Name: "signature", Type: "bytes"},
	})
	return abi.Arguments{{Name: "userOp", Type: tuple}}
}()

// abiUserOperation mirrors the tuple components above for abi packing.
type abiUserOperation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// Hasher computes canonical operation hashes against a fixed EntryPoint.
type Hasher struct {
	entryPoint common.Address
	caller     ContractCaller
}

// NewHasher creates a Hasher bound to the given EntryPoint address.
func NewHasher(entryPoint common.Address, caller ContractCaller) *Hasher {
	return &Hasher{
		entryPoint: entryPoint,
		caller:     caller,
	}
}

// Hash returns the canonical hash of op with its raw signature replaced by
// wrappedSignature. op itself is not modified. The hash scheme is owned by the
// EntryPoint contract and must match what the on-chain verification expects;
// failures to reach it surface as ErrHashingUnavailable.
func (h *Hasher) Hash(ctx context.Context, op *types.UserOperation, wrappedSignature []byte) (common.Hash, error) {
	calldata, err := PackGetOperationHash(op, wrappedSignature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack user operation: %w", err)
	}

	ret, err := h.caller.CallContract(ctx, h.entryPoint, calldata)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrHashingUnavailable, err)
	}
	if len(ret) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: unexpected return length %d", ErrHashingUnavailable, len(ret))
	}

	return common.BytesToHash(ret), nil
}

// PackGetOperationHash builds the getUserOpHash calldata for op with
// wrappedSignature substituted for the raw signature field.
func PackGetOperationHash(op *types.UserOperation, wrappedSignature []byte) ([]byte, error) {
	packed, err := userOpTupleArgs.Pack(abiUserOperation{
		Sender:               op.Sender,
		Nonce:                orZero(op.Nonce),
		InitCode:             op.InitCode,
		CallData:             op.CallData,
		CallGasLimit:         orZero(op.CallGasLimit),
		VerificationGasLimit: orZero(op.VerificationGasLimit),
		PreVerificationGas:   orZero(op.PreVerificationGas),
		MaxFeePerGas:         orZero(op.MaxFeePerGas),
		MaxPriorityFeePerGas: orZero(op.MaxPriorityFeePerGas),
		PaymasterAndData:     op.PaymasterAndData,
		Signature:            wrappedSignature,
	})
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, getUserOpHashSelector...), packed...), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
