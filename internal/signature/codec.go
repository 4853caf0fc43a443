// Package signature packs raw ECDSA signatures into the time-bounded wrapper
// format verified by the Safe signature-validator module.
package signature

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// RawSignatureLength is the expected length of an unwrapped signature: r(32) || s(32) || v(1).
	RawSignatureLength = 65
	// windowFieldLength is the byte width of each uint48 validity bound.
	windowFieldLength = 6
	// WrappedSignatureLength is validAfter(6) || validUntil(6) || r(32) || s(32) || v(1).
	WrappedSignatureLength = 2*windowFieldLength + RawSignatureLength

	// validityWindowSeconds is the half-width of the validity window on each
	// side of the reference timestamp.
	validityWindowSeconds = 3600
)

// ErrInvalidSignatureLength is returned when the raw signature is not exactly 65 bytes.
var ErrInvalidSignatureLength = errors.New("raw signature must be exactly 65 bytes")

// EncodeSafeSignature wraps a 65-byte raw signature into the Safe wrapper
// format. The validity window is [referenceTimestamp-3600, referenceTimestamp+3600],
// each bound encoded as a 6-byte (uint48) big-endian integer. The recovery byte
// is shifted from the legacy [27,30] range into the contract-signature range
// [31,34]; values outside [27,30] pass through unchanged.
//
// referenceTimestamp must be greater than 3600; the window start would
// otherwise underflow.
func EncodeSafeSignature(rawSig []byte, referenceTimestamp uint64) ([]byte, error) {
	if len(rawSig) != RawSignatureLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSignatureLength, len(rawSig))
	}

	buffer := make([]byte, 0, WrappedSignatureLength)

	// validAfter (6 bytes - uint48)
	validAfterBytes := make([]byte, windowFieldLength)
	new(big.Int).SetUint64(referenceTimestamp - validityWindowSeconds).FillBytes(validAfterBytes)
	buffer = append(buffer, validAfterBytes...)

	// validUntil (6 bytes - uint48)
	validUntilBytes := make([]byte, windowFieldLength)
	new(big.Int).SetUint64(referenceTimestamp + validityWindowSeconds).FillBytes(validUntilBytes)
	buffer = append(buffer, validUntilBytes...)

	// r || s (64 bytes), excluding the trailing recovery byte
	buffer = append(buffer, rawSig[:RawSignatureLength-1]...)

	// normalized v (1 byte)
	buffer = append(buffer, NormalizeRecoveryByte(rawSig[RawSignatureLength-1]))

	return buffer, nil
}

// NormalizeRecoveryByte shifts a legacy recovery id in [27,30] by 4 into the
// range [31,34] used by the Safe module to mark eth_sign-style signatures. The
// range guard is strict: an already shifted value is never shifted again.
func NormalizeRecoveryByte(v byte) byte {
	if v >= 27 && v <= 30 {
		return v + 4
	}
	return v
}

// ValidityWindow returns the [validAfter, validUntil] bounds the codec would
// encode for the given reference timestamp.
func ValidityWindow(referenceTimestamp uint64) (validAfter, validUntil uint64) {
	return referenceTimestamp - validityWindowSeconds, referenceTimestamp + validityWindowSeconds
}
