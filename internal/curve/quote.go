// =============================
// File: internal/curve/quote.go
// =============================
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

// Все четыре функции чистые: только (remainingSupply, amount) на входе.
// Округление всегда в пользу кривой.

// QuoteBuyGivenTokens returns the reserve a buyer must pay to take exactly
// tokenAmount off the curve. The point after the trade is rounded up and the
// point before it is rounded down.
func QuoteBuyGivenTokens(remainingSupply, tokenAmount uint64) uint64 {
	s := sold(remainingSupply)
	if tokenAmount > MaxVirtualToken-s {
		panic(fmt.Sprintf("curve: buy of %d tokens past the virtual token bound", tokenAmount))
	}
	before := reserveAt(s, RoundDown)
	after := reserveAt(s+tokenAmount, RoundUp)
	return toUint64(after.Sub(before))
}

// QuoteSellGivenTokens returns the reserve refunded for returning tokenAmount
// to the curve. The point before the trade is rounded up, the point after it
// down, and a non-positive difference yields 0.
func QuoteSellGivenTokens(remainingSupply, tokenAmount uint64) uint64 {
	s := sold(remainingSupply)
	if tokenAmount > s {
		panic(fmt.Sprintf("curve: sell of %d tokens exceeds sold amount %d", tokenAmount, s))
	}
	before := reserveAt(s, RoundUp)
	after := reserveAt(s-tokenAmount, RoundDown)
	if before.Cmp(after) <= 0 {
		return 0
	}
	return toUint64(before.Sub(after))
}

// QuoteTokensGivenReserveBuy returns the tokens obtainable for reserveAmount,
// clamped so the curve never hands out more than its sellable part.
func QuoteTokensGivenReserveBuy(remainingSupply, reserveAmount uint64) uint64 {
	s := sold(remainingSupply)
	before := reserveAt(s, RoundDown)
	target := soldAt(before.Add64(reserveAmount))

	switch {
	case target.Cmp64(s) <= 0:
		return 0
	case target.Cmp64(SellableSupply) >= 0:
		if s >= SellableSupply {
			return 0
		}
		return SellableSupply - s
	default:
		return toUint64(target.Sub64(s))
	}
}

// QuoteTokensGivenReserveSell returns the tokens that must be sold back to the
// curve so that it releases exactly reserveAmount.
//
// Asking for more than the floor reserve at the current point fails with
// protocol.ErrExactOutTooLarge. Asking for exactly that much returns every sold
// token. protocol.ErrUnexpectedOutput means the inverse did not move the curve
// downwards, which the math rules out.
func QuoteTokensGivenReserveSell(remainingSupply, reserveAmount uint64) (uint64, error) {
	s := sold(remainingSupply)
	before := reserveAt(s, RoundDown)

	switch before.Cmp64(reserveAmount) {
	case -1:
		return 0, protocol.ErrExactOutTooLarge
	case 0:
		return s, nil
	}

	target := soldAt(before.Sub64(reserveAmount))
	if target.Cmp64(s) >= 0 {
		return 0, protocol.ErrUnexpectedOutput
	}
	return s - target.Lo, nil
}
