// internal/curve/math.go
package curve

import (
	"fmt"

	"lukechampine.com/uint128"
)

// Rounding selects the direction of an integer division.
type Rounding uint8

const (
	RoundDown Rounding = iota
	RoundUp
)

// CeilDiv returns ceil(a / b). Panics when b is zero.
func CeilDiv(a, b uint128.Uint128) uint128.Uint128 {
	q, r := a.QuoRem(b)
	if !r.IsZero() {
		q = q.Add64(1)
	}
	return q
}

// MulDiv computes a*b/d on 128-bit intermediates with the requested rounding.
// Overflow of a*b panics.
func MulDiv(a, b, d uint64, rounding Rounding) uint64 {
	n := uint128.From64(a).Mul64(b)
	den := uint128.From64(d)
	if rounding == RoundUp {
		return toUint64(CeilDiv(n, den))
	}
	return toUint64(n.Div(den))
}

// toUint64 narrows v. A value that does not fit is a defect in the caller.
func toUint64(v uint128.Uint128) uint64 {
	if v.Hi != 0 {
		panic(fmt.Sprintf("curve: %s does not fit in 64 bits", v))
	}
	return v.Lo
}

// sold returns the number of tokens already taken off the curve.
func sold(remainingSupply uint64) uint64 {
	if remainingSupply > TotalSupply {
		panic(fmt.Sprintf("curve: remaining supply %d exceeds total supply", remainingSupply))
	}
	return TotalSupply - remainingSupply
}

// reserveAt is the reserve raised once s tokens are sold:
// s * VirtualReserveOffset / (MaxVirtualToken - s).
func reserveAt(s uint64, rounding Rounding) uint128.Uint128 {
	if s >= MaxVirtualToken {
		panic(fmt.Sprintf("curve: sold amount %d reaches the virtual token bound", s))
	}
	n := uint128.From64(s).Mul64(VirtualReserveOffset)
	d := uint128.From64(MaxVirtualToken - s)
	if rounding == RoundUp {
		return CeilDiv(n, d)
	}
	return n.Div(d)
}

// soldAt inverts reserveAt: tokens sold once reserve r has been raised, rounded down.
func soldAt(r uint128.Uint128) uint128.Uint128 {
	return r.Mul64(MaxVirtualToken).Div(r.Add64(VirtualReserveOffset))
}
