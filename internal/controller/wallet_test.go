package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewallet/walletkit/internal/config"
	"github.com/safewallet/walletkit/internal/signature"
	"github.com/safewallet/walletkit/internal/types"
)

func init() {
	handler := log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	handler = log.LvlFilterHandler(log.LvlError, handler)
	log.Root().SetHandler(handler)
}

// fakeReader is a deterministic in-memory chain.
type fakeReader struct {
	blockTimestamp uint64
	blockNumber    uint64
	callErr        error
	event          *types.ConfirmationEvent
}

func (f *fakeReader) CallContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return crypto.Keccak256(data), nil
}

func (f *fakeReader) BlockNumber(context.Context) (uint64, error) {
	return f.blockNumber, nil
}

func (f *fakeReader) NextEvent(context.Context, common.Address, string, uint64) (*types.ConfirmationEvent, error) {
	return f.event, nil
}

func (f *fakeReader) LatestBlockInformation(context.Context) (*types.BlockInformation, error) {
	return &types.BlockInformation{Number: f.blockNumber, Timestamp: f.blockTimestamp}, nil
}

func setupWalletTestRouter(reader *fakeReader) *gin.Engine {
	cfg := &config.Config{
		APIKeys:           []string{"test-api-key"},
		EntryPointAddress: common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		ChainID:           1,
		WaitDeadlineMs:    200,
		PollIntervalMs:    50,
	}

	walletController := NewWalletController(cfg, reader)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/", walletController.Wallet)
	return router
}

func postRPC(t *testing.T, router *gin.Engine, method string, params string) types.WalletJSONRPCResponse {
	body := `{"jsonrpc":"2.0","id":1,"method":"` + method + `","params":` + params + `}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp types.WalletJSONRPCResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func rawSignatureHex(v byte) string {
	sig := make([]byte, 65)
	for i := 0; i < 32; i++ {
		sig[i] = 0x11
	}
	for i := 32; i < 64; i++ {
		sig[i] = 0x22
	}
	sig[64] = v
	return hexutil.Encode(sig)
}

func TestWalletWrapSignature(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{blockTimestamp: 1_700_000_000, blockNumber: 1000})

	resp := postRPC(t, router, "wallet_wrapSignature", `["`+rawSignatureHex(27)+`", 1700000000]`)
	require.Nil(t, resp.Error)

	var result WrapSignatureResult
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))

	assert.Len(t, []byte(result.WrappedSignature), signature.WrappedSignatureLength)
	assert.Equal(t, uint64(1_700_000_000-3600), result.ValidAfter)
	assert.Equal(t, uint64(1_700_000_000+3600), result.ValidUntil)
	assert.Equal(t, byte(0x1f), result.WrappedSignature[signature.WrappedSignatureLength-1])
}

func TestWalletWrapSignatureDefaultsToLatestBlock(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{blockTimestamp: 1_700_001_000, blockNumber: 1000})

	resp := postRPC(t, router, "wallet_wrapSignature", `["`+rawSignatureHex(28)+`"]`)
	require.Nil(t, resp.Error)

	var result WrapSignatureResult
	raw, _ := json.Marshal(resp.Result)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, uint64(1_700_001_000-3600), result.ValidAfter)
}

func TestWalletWrapSignatureRejectsBadLength(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{blockTimestamp: 1_700_000_000})

	resp := postRPC(t, router, "wallet_wrapSignature", `["0x1122", 1700000000]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, types.InvalidSignatureErrorCode, resp.Error.Code)
}

func TestWalletGetOperationHash(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{blockTimestamp: 1_700_000_000, blockNumber: 1000})

	op := `{
		"sender": "0x1234567890123456789012345678901234567890",
		"nonce": 7,
		"initCode": "0x",
		"callData": "0xdeadbeef",
		"callGasLimit": 100000,
		"verificationGasLimit": 200000,
		"preVerificationGas": 21000,
		"maxFeePerGas": 2000000000,
		"maxPriorityFeePerGas": 1000000000,
		"paymasterAndData": "0x",
		"signature": "` + rawSignatureHex(27) + `"
	}`

	resp := postRPC(t, router, "wallet_getOperationHash", `[`+op+`, 1700000000]`)
	require.Nil(t, resp.Error)

	var result GetOperationHashResult
	raw, _ := json.Marshal(resp.Result)
	require.NoError(t, json.Unmarshal(raw, &result))

	assert.Len(t, common.HexToHash(result.OperationHash), 32)
	assert.Len(t, []byte(result.WrappedSignature), signature.WrappedSignatureLength)

	// Deterministic: the same request yields the same hash.
	again := postRPC(t, router, "wallet_getOperationHash", `[`+op+`, 1700000000]`)
	var resultAgain GetOperationHashResult
	raw, _ = json.Marshal(again.Result)
	require.NoError(t, json.Unmarshal(raw, &resultAgain))
	assert.Equal(t, result.OperationHash, resultAgain.OperationHash)
}

func TestWalletGetOperationHashUnavailable(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{
		blockTimestamp: 1_700_000_000,
		callErr:        assert.AnError,
	})

	op := `{"sender": "0x1234567890123456789012345678901234567890", "signature": "` + rawSignatureHex(27) + `"}`
	resp := postRPC(t, router, "wallet_getOperationHash", `[`+op+`, 1700000000]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, types.HashingUnavailableErrorCode, resp.Error.Code)
}

func TestWalletWaitForOperationFound(t *testing.T) {
	event := &types.ConfirmationEvent{
		TransactionHash: common.HexToHash("0xabc1"),
		BlockNumber:     995,
		Success:         true,
	}
	router := setupWalletTestRouter(&fakeReader{blockNumber: 1000, event: event})

	resp := postRPC(t, router, "wallet_waitForOperation", `[{"deadlineMs": 200, "pollIntervalMs": 50}]`)
	require.Nil(t, resp.Error)

	var result WaitForOperationResult
	raw, _ := json.Marshal(resp.Result)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.Found)
	require.NotNil(t, result.Event)
	assert.Equal(t, event.TransactionHash, result.Event.TransactionHash)
}

func TestWalletWaitForOperationTimesOut(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{blockNumber: 1000})

	resp := postRPC(t, router, "wallet_waitForOperation", `[{"deadlineMs": 200, "pollIntervalMs": 50}]`)
	require.Nil(t, resp.Error)

	var result WaitForOperationResult
	raw, _ := json.Marshal(resp.Result)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.Found)
	assert.Nil(t, result.Event)
}

func TestWalletMethodNotFound(t *testing.T) {
	router := setupWalletTestRouter(&fakeReader{})

	resp := postRPC(t, router, "wallet_unknown", `[]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, types.MethodNotFoundCode, resp.Error.Code)
}
