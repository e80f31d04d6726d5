// Package amount converts between human-readable token amounts and the
// integer base units the encoders take.
package amount

import (
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"

	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// MaxDecimals is the largest scale a decimal amount can carry.
const MaxDecimals = sdkmath.LegacyPrecision

// ParseUnits converts text such as "1.5" into base units at the given
// decimals. Fractions finer than one base unit are rejected, never rounded.
func ParseUnits(text string, decimals uint8) (*big.Int, error) {
	if int(decimals) > MaxDecimals {
		return nil, bridgeerrors.NewValidationError("", fmt.Sprintf("decimals %d exceeds %d", decimals, MaxDecimals))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, bridgeerrors.NewValidationError("", "amount is required")
	}

	dec, err := sdkmath.LegacyNewDecFromStr(text)
	if err != nil {
		return nil, bridgeerrors.NewValidationError("", fmt.Sprintf("invalid amount %q", text))
	}
	if !dec.IsPositive() {
		return nil, bridgeerrors.NewValidationError("", "amount must be greater than zero")
	}

	scaled := dec.MulInt(sdkmath.NewIntWithDecimal(1, int(decimals)))
	if !scaled.IsInteger() {
		return nil, bridgeerrors.NewValidationError("",
			fmt.Sprintf("amount %s has more than %d decimal places", text, decimals))
	}
	return scaled.TruncateInt().BigInt(), nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if int(decimals) > MaxDecimals {
		return value.String()
	}

	out := sdkmath.LegacyNewDecFromBigIntWithPrec(value, int64(decimals)).String()
	if strings.Contains(out, ".") {
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	return out
}
