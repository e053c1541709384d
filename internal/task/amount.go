package task

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
)

// ParseAmount converts a human amount such as "0.5" into base units.
func ParseAmount(s string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	d = d.Shift(decimals)
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	n := d.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return n.Uint64(), nil
}

// FormatAmount renders base units as a human amount.
func FormatAmount(v uint64, decimals int32) string {
	return decimal.NewFromUint64(v).Shift(-decimals).String()
}

// FormatReserve renders reserve base units.
func FormatReserve(v uint64) string {
	return FormatAmount(v, curve.ReserveDecimals)
}

// FormatTokens renders token base units.
func FormatTokens(v uint64) string {
	return FormatAmount(v, curve.Decimals)
}
