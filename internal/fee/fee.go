// internal/fee/fee.go
package fee

import (
	"lukechampine.com/uint128"
)

// FeeRateBasisPoint is the fixed-point base of every fee rate: 1e8 is 100%.
const FeeRateBasisPoint uint32 = 100_000_000

// ValidRate reports whether rate lies in [0, FeeRateBasisPoint].
func ValidRate(rate uint32) bool {
	return rate <= FeeRateBasisPoint
}

// BuyFee is the maker fee charged on top of a buy quote.
func BuyFee(quotedReserve uint64, makerFeeRate uint32) uint64 {
	return calc(quotedReserve, makerFeeRate)
}

// SellFee is the taker fee withheld from a sell quote.
func SellFee(quotedReserve uint64, takerFeeRate uint32) uint64 {
	return calc(quotedReserve, takerFeeRate)
}

// floor(amount * rate / FeeRateBasisPoint)
func calc(amount uint64, rate uint32) uint64 {
	if rate == 0 || amount == 0 {
		return 0
	}
	return uint128.From64(amount).Mul64(uint64(rate)).Div64(uint64(FeeRateBasisPoint)).Lo
}

// GrossForNet returns the pre-fee reserve a seller has to release so that
// receive remains after the taker fee: receive * B / (B - rate).
// ok is false when the rate takes everything or the result exceeds 64 bits.
func GrossForNet(receive uint64, takerFeeRate uint32) (gross uint64, ok bool) {
	if takerFeeRate >= FeeRateBasisPoint {
		return 0, false
	}
	g := uint128.From64(receive).
		Mul64(uint64(FeeRateBasisPoint)).
		Div64(uint64(FeeRateBasisPoint - takerFeeRate))
	if g.Hi != 0 {
		return 0, false
	}
	return g.Lo, true
}
