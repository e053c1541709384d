// internal/curve/price.go
package curve

import (
	sdkmath "cosmossdk.io/math"
)

// SpotPrice returns the marginal price in reserve units per token unit:
// VirtualReserveOffset * MaxVirtualToken / (MaxVirtualToken - sold)^2.
func SpotPrice(remainingSupply uint64) sdkmath.LegacyDec {
	s := sold(remainingSupply)
	left := sdkmath.NewIntFromUint64(MaxVirtualToken - s)
	num := sdkmath.NewIntFromUint64(VirtualReserveOffset).Mul(sdkmath.NewIntFromUint64(MaxVirtualToken))
	return sdkmath.LegacyNewDecFromInt(num).Quo(sdkmath.LegacyNewDecFromInt(left.Mul(left)))
}

// Progress returns the sold share of the sellable supply, from 0 to 1.
func Progress(remainingSupply uint64) sdkmath.LegacyDec {
	s := sold(remainingSupply)
	if s >= SellableSupply {
		return sdkmath.LegacyOneDec()
	}
	return sdkmath.LegacyNewDecFromInt(sdkmath.NewIntFromUint64(s)).
		Quo(sdkmath.LegacyNewDecFromInt(sdkmath.NewIntFromUint64(SellableSupply)))
}

// MarketCap values the whole supply at the current spot price, in reserve units.
func MarketCap(remainingSupply uint64) sdkmath.LegacyDec {
	return SpotPrice(remainingSupply).MulInt(sdkmath.NewIntFromUint64(TotalSupply))
}
