package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUnitsTrim converts a minimal-unit balance to a human string:
// - divides by 10^decimals
// - trims to maxFrac decimal places
// - removes trailing zeros
//
// Examples:
//
//	balance=1234500000000000000, decimals=18 -> "1.2345"
//	balance=1000000000000000000, decimals=18 -> "1"
//	balance=1, decimals=18, maxFrac=5 -> "0"
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)

	intPart := new(big.Int).Quo(amount, base)
	fracPart := new(big.Int).Rem(amount, base)
	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
		intPart.Abs(intPart)
		fracPart.Abs(fracPart)
	}

	if fracPart.Sign() == 0 || maxFrac <= 0 {
		return sign + intPart.String()
	}

	// left-pad fractional part to `decimals`
	fracStr := fracPart.String()
	if len(fracStr) < int(decimals) {
		fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
	}
	if len(fracStr) > maxFrac {
		fracStr = fracStr[:maxFrac]
	}

	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		return sign + intPart.String()
	}
	return sign + intPart.String() + "." + fracStr
}

// ToUnits converts a minimal-unit amount to human units rounded to places
// fractional digits. A nil amount is zero.
func ToUnits(amount *big.Int, decimals uint8, places int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Round(places)
}

// FiatString renders v as "$" followed by exactly two decimals.
// Negative values render as zero.
func FiatString(v decimal.Decimal) string {
	if v.Sign() < 0 {
		v = decimal.Zero
	}
	return "$" + v.StringFixed(2)
}
