// Package controller provides the JSON-RPC controllers for the walletkit sidecar.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"

	"github.com/safewallet/walletkit/internal/chain"
	"github.com/safewallet/walletkit/internal/config"
	"github.com/safewallet/walletkit/internal/signature"
	"github.com/safewallet/walletkit/internal/types"
	"github.com/safewallet/walletkit/internal/userop"
	"github.com/safewallet/walletkit/internal/waiter"
)

// ChainReader aggregates the chain capabilities the controller needs.
type ChainReader interface {
	userop.ContractCaller
	waiter.EventSource
	LatestBlockInformation(ctx context.Context) (*types.BlockInformation, error)
}

// WalletController handles the wallet_* JSON-RPC methods.
type WalletController struct {
	cfg    *config.Config
	reader ChainReader
	hasher *userop.Hasher
	waiter *waiter.Waiter
}

// NewWalletController creates a WalletController instance.
func NewWalletController(cfg *config.Config, reader ChainReader) *WalletController {
	return &WalletController{
		cfg:    cfg,
		reader: reader,
		hasher: userop.NewHasher(cfg.EntryPointAddress, reader),
		waiter: waiter.New(reader),
	}
}

// Wallet is the gin handler for the JSON-RPC endpoint.
func (wc *WalletController) Wallet(c *gin.Context) {
	var req types.WalletJSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		types.SendError(c, nil, types.InvalidRequestCode, "Invalid JSON-RPC request")
		return
	}

	switch req.Method {
	case "wallet_wrapSignature":
		wc.handleWrapSignature(c, req)
	case "wallet_getOperationHash":
		wc.handleGetOperationHash(c, req)
	case "wallet_waitForOperation":
		wc.handleWaitForOperation(c, req)
	default:
		log.Debug("Method not found", "method", req.Method)
		types.SendError(c, req.ID, types.MethodNotFoundCode, "Method not found: "+req.Method)
	}
}

// WrapSignatureResult is the result of wallet_wrapSignature.
type WrapSignatureResult struct {
	WrappedSignature hexutil.Bytes `json:"wrappedSignature"`
	ValidAfter       uint64        `json:"validAfter"`
	ValidUntil       uint64        `json:"validUntil"`
}

// GetOperationHashResult is the result of wallet_getOperationHash.
type GetOperationHashResult struct {
	OperationHash    string        `json:"operationHash"`
	WrappedSignature hexutil.Bytes `json:"wrappedSignature"`
	ValidAfter       uint64        `json:"validAfter"`
	ValidUntil       uint64        `json:"validUntil"`
}

// WaitForOperationResult is the result of wallet_waitForOperation. Event is
// null when the wait timed out.
type WaitForOperationResult struct {
	Found bool                     `json:"found"`
	Event *types.ConfirmationEvent `json:"event,omitempty"`
}

// wrapSignatureParams are the positional params of wallet_wrapSignature:
// [rawSignature, referenceTimestamp?]. When the timestamp is omitted the
// latest block timestamp anchors the validity window.
type wrapSignatureParams struct {
	RawSignature       hexutil.Bytes
	ReferenceTimestamp *uint64
}

func parseWrapSignatureParams(raw json.RawMessage) (*wrapSignatureParams, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil {
		return nil, fmt.Errorf("params must be a positional array: %w", err)
	}
	if len(positional) < 1 || len(positional) > 2 {
		return nil, errors.New("expected [rawSignature, referenceTimestamp?]")
	}

	var params wrapSignatureParams
	if err := json.Unmarshal(positional[0], &params.RawSignature); err != nil {
		return nil, fmt.Errorf("invalid raw signature: %w", err)
	}
	if len(positional) == 2 {
		var ts uint64
		if err := json.Unmarshal(positional[1], &ts); err != nil {
			return nil, fmt.Errorf("invalid reference timestamp: %w", err)
		}
		params.ReferenceTimestamp = &ts
	}
	return &params, nil
}

func (wc *WalletController) handleWrapSignature(c *gin.Context, req types.WalletJSONRPCRequest) {
	params, err := parseWrapSignatureParams(req.Params)
	if err != nil {
		types.SendError(c, req.ID, types.InvalidParamsCode, err.Error())
		return
	}

	referenceTimestamp, err := wc.resolveReferenceTimestamp(c.Request.Context(), params.ReferenceTimestamp)
	if err != nil {
		log.Error("Failed to resolve reference timestamp", "error", err)
		types.SendError(c, req.ID, types.InternalErrorCode, "Failed to fetch reference block")
		return
	}

	wrapped, err := signature.EncodeSafeSignature(params.RawSignature, referenceTimestamp)
	if err != nil {
		log.Debug("Signature encoding failed", "error", err)
		types.SendError(c, req.ID, types.InvalidSignatureErrorCode, err.Error())
		return
	}

	validAfter, validUntil := signature.ValidityWindow(referenceTimestamp)
	types.SendSuccess(c, req.ID, WrapSignatureResult{
		WrappedSignature: wrapped,
		ValidAfter:       validAfter,
		ValidUntil:       validUntil,
	})
}

// getOperationHashParams are the positional params of wallet_getOperationHash:
// [userOperation, referenceTimestamp?].
func parseGetOperationHashParams(raw json.RawMessage) (*types.UserOperation, *uint64, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil {
		return nil, nil, fmt.Errorf("params must be a positional array: %w", err)
	}
	if len(positional) < 1 || len(positional) > 2 {
		return nil, nil, errors.New("expected [userOperation, referenceTimestamp?]")
	}

	var op types.UserOperation
	if err := json.Unmarshal(positional[0], &op); err != nil {
		return nil, nil, fmt.Errorf("invalid user operation: %w", err)
	}
	var reference *uint64
	if len(positional) == 2 {
		var ts uint64
		if err := json.Unmarshal(positional[1], &ts); err != nil {
			return nil, nil, fmt.Errorf("invalid reference timestamp: %w", err)
		}
		reference = &ts
	}
	return &op, reference, nil
}

func (wc *WalletController) handleGetOperationHash(c *gin.Context, req types.WalletJSONRPCRequest) {
	op, reference, err := parseGetOperationHashParams(req.Params)
	if err != nil {
		types.SendError(c, req.ID, types.InvalidParamsCode, err.Error())
		return
	}

	referenceTimestamp, err := wc.resolveReferenceTimestamp(c.Request.Context(), reference)
	if err != nil {
		log.Error("Failed to resolve reference timestamp", "error", err)
		types.SendError(c, req.ID, types.InternalErrorCode, "Failed to fetch reference block")
		return
	}

	wrapped, err := signature.EncodeSafeSignature(op.Signature, referenceTimestamp)
	if err != nil {
		log.Debug("Signature encoding failed", "error", err, "sender", op.Sender.Hex())
		types.SendError(c, req.ID, types.InvalidSignatureErrorCode, err.Error())
		return
	}

	digest, err := wc.hasher.Hash(c.Request.Context(), op, wrapped)
	if err != nil {
		log.Error("Failed to compute operation hash", "error", err, "sender", op.Sender.Hex())
		if errors.Is(err, userop.ErrHashingUnavailable) {
			types.SendError(c, req.ID, types.HashingUnavailableErrorCode, "EntryPoint hashing unavailable")
			return
		}
		types.SendError(c, req.ID, types.InternalErrorCode, "Failed to compute operation hash")
		return
	}

	validAfter, validUntil := signature.ValidityWindow(referenceTimestamp)
	types.SendSuccess(c, req.ID, GetOperationHashResult{
		OperationHash:    digest.Hex(),
		WrappedSignature: wrapped,
		ValidAfter:       validAfter,
		ValidUntil:       validUntil,
	})
}

// waitForOperationParams are the positional params of wallet_waitForOperation:
// [{deadlineMs?, pollIntervalMs?, lookbackBlocks?}].
type waitForOperationParams struct {
	DeadlineMs     int64  `json:"deadlineMs"`
	PollIntervalMs int64  `json:"pollIntervalMs"`
	LookbackBlocks uint64 `json:"lookbackBlocks"`
}

func (wc *WalletController) handleWaitForOperation(c *gin.Context, req types.WalletJSONRPCRequest) {
	var positional []waitForOperationParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &positional); err != nil {
			types.SendError(c, req.ID, types.InvalidParamsCode, "expected [{deadlineMs, pollIntervalMs, lookbackBlocks}]")
			return
		}
	}
	var params waitForOperationParams
	if len(positional) > 0 {
		params = positional[0]
	}

	waitReq := waiter.WaitRequest{
		Deadline:       wc.durationOrDefault(params.DeadlineMs, wc.cfg.WaitDeadlineMs, 2*time.Minute),
		PollInterval:   wc.durationOrDefault(params.PollIntervalMs, wc.cfg.PollIntervalMs, 3*time.Second),
		LookbackBlocks: params.LookbackBlocks,
	}
	if waitReq.LookbackBlocks == 0 {
		waitReq.LookbackBlocks = wc.cfg.EventLookbackBlocks
	}

	// The request context doubles as the cancellation token: a disconnecting
	// client stops the polling loop.
	results := wc.waiter.Wait(c.Request.Context(), waitReq, waiter.Filter{
		Contract:       wc.cfg.EntryPointAddress,
		EventSignature: chain.UserOperationEventSignature,
	})

	result, ok := <-results
	if !ok {
		// Cancelled; the client is gone, nothing to send.
		return
	}

	switch result.State {
	case waiter.StateFound:
		types.SendSuccess(c, req.ID, WaitForOperationResult{Found: true, Event: result.Event})
	default:
		types.SendSuccess(c, req.ID, WaitForOperationResult{Found: false})
	}
}

func (wc *WalletController) resolveReferenceTimestamp(ctx context.Context, explicit *uint64) (uint64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	info, err := wc.reader.LatestBlockInformation(ctx)
	if err != nil {
		return 0, err
	}
	return info.Timestamp, nil
}

func (wc *WalletController) durationOrDefault(requested, configured int64, fallback time.Duration) time.Duration {
	if requested > 0 {
		return time.Duration(requested) * time.Millisecond
	}
	if configured > 0 {
		return time.Duration(configured) * time.Millisecond
	}
	return fallback
}
