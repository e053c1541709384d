package curve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

// pumpReserves is a live pump.fun pool snapshot used as a mid-curve state.
const pumpReserves uint64 = 589359216751050 + ReservedSupply

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		a, b, want uint64
	}{
		{0, 7, 0},
		{7, 7, 1},
		{8, 7, 2},
		{14, 7, 2},
		{1, 1_000_000, 1},
	}
	for _, tt := range tests {
		got := CeilDiv(uint128.From64(tt.a), uint128.From64(tt.b))
		assert.Equal(t, tt.want, got.Lo, "ceil(%d/%d)", tt.a, tt.b)
	}
}

func TestMulDiv_WideIntermediate(t *testing.T) {
	// 1e15 * 3e10 overflows uint64 but not the intermediate.
	assert.Equal(t, uint64(30_000_000_000_000), MulDiv(TotalSupply, VirtualReserveOffset, 1_000_000_000_000, RoundDown))
	assert.Equal(t, uint64(3), MulDiv(5, 1, 2, RoundUp))
	assert.Equal(t, uint64(2), MulDiv(5, 1, 2, RoundDown))
}

func TestQuoteBuyGivenTokens(t *testing.T) {
	tests := []struct {
		name      string
		remaining uint64
		amount    uint64
		want      uint64
	}{
		{"buy whole sellable part", TotalSupply, SellableSupply, 85005359057},
		{"buy half", TotalSupply, SellableSupply / 2, 17586665682},
		{"buy one unit costs one", TotalSupply, 1, 1},
		{"mid curve", TotalSupply - 2329803488261, 17514483287344, 500000001},
		{"pump snapshot", pumpReserves, 11_000_000 * 1_000_000, 474619833},
		{"zero amount", TotalSupply, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteBuyGivenTokens(tt.remaining, tt.amount))
		})
	}
}

func TestQuoteSellGivenTokens(t *testing.T) {
	assert.Equal(t, uint64(462757832), QuoteSellGivenTokens(pumpReserves, 11_000_000*1_000_000))
	assert.Equal(t, uint64(27985075), QuoteSellGivenTokens(TotalSupply-1_000_000_000_000, 1_000_000_000_000))
	assert.Equal(t, uint64(0), QuoteSellGivenTokens(TotalSupply, 0))
	assert.Equal(t, uint64(0), QuoteSellGivenTokens(pumpReserves, 0))
}

func TestQuoteSellGivenTokens_PanicsPastSold(t *testing.T) {
	assert.Panics(t, func() { QuoteSellGivenTokens(TotalSupply-10, 11) })
	assert.Panics(t, func() { QuoteSellGivenTokens(TotalSupply+1, 0) })
}

func TestQuoteTokensGivenReserveBuy(t *testing.T) {
	tests := []struct {
		name      string
		remaining uint64
		pay       uint64
		want      uint64
	}{
		{"exact cost of sellable part", TotalSupply, 85005359057, SellableSupply},
		{"overpay is clamped", TotalSupply, 85005359057 + 1_000_000_000, SellableSupply},
		{"one lamport", TotalSupply, 1, 35766},
		{"0.1 SOL", TotalSupply, 100_000_000, 3564784053156},
		{"1 SOL", TotalSupply, 1_000_000_000, 34612903225806},
		{"3.33 SOL", TotalSupply, 3333333333, 107299999990342},
		{"mid curve 10 SOL", TotalSupply - 2692001940000, 10_000_000_000, 267073199500706},
		{"pump snapshot 0.5 SOL", pumpReserves, 500_000_000, 11580385658285},
		{"pump snapshot 1 SOL", pumpReserves, 1_000_000_000, 22856276991103},
		{"pump snapshot 23.3 SOL", pumpReserves, 23333330000, 336001966735479},
		{"zero pay", TotalSupply, 0, 0},
		{"nothing left to sell", ReservedSupply, 1_000_000_000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteTokensGivenReserveBuy(tt.remaining, tt.pay))
		})
	}
}

func TestQuoteTokensGivenReserveSell(t *testing.T) {
	t.Run("recover whole sellable part", func(t *testing.T) {
		// floor reserve at the exhaustion point is one below the ceiling cost.
		got, err := QuoteTokensGivenReserveSell(ReservedSupply, 85005359057-1)
		require.NoError(t, err)
		assert.Equal(t, SellableSupply, got)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := QuoteTokensGivenReserveSell(ReservedSupply, 85005359057)
		assert.ErrorIs(t, err, protocol.ErrExactOutTooLarge)
	})

	t.Run("nothing sold", func(t *testing.T) {
		got, err := QuoteTokensGivenReserveSell(TotalSupply, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), got)

		_, err = QuoteTokensGivenReserveSell(TotalSupply, 1)
		assert.ErrorIs(t, err, protocol.ErrExactOutTooLarge)
	})

	t.Run("zero reserve on an exact grid point", func(t *testing.T) {
		// half of the virtual bound sold: the reserve is exactly VirtualReserveOffset.
		remaining := TotalSupply - MaxVirtualToken/2
		_, err := QuoteTokensGivenReserveSell(remaining, 0)
		assert.ErrorIs(t, err, protocol.ErrUnexpectedOutput)
	})

	t.Run("buy then recover the same reserve", func(t *testing.T) {
		for _, pay := range []uint64{500_000_000, 1_000_000_000, 23333330000} {
			bought := QuoteTokensGivenReserveBuy(pumpReserves, pay)
			back, err := QuoteTokensGivenReserveSell(pumpReserves-bought, pay)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, back, bought, "pay %d", pay)
		}
	})
}

func TestQuote_BuyIsIncreasing(t *testing.T) {
	for _, remaining := range []uint64{TotalSupply, pumpReserves} {
		available := remaining - ReservedSupply
		prev := uint64(0)
		for _, amount := range []uint64{1_000_000, 1_000_000_000, available / 1000, available / 3, available / 2, available} {
			cost := QuoteBuyGivenTokens(remaining, amount)
			assert.Greater(t, cost, prev, "remaining %d amount %d", remaining, amount)
			prev = cost
		}
	}

	// below one reserve unit of granularity the cost only has to be non-decreasing
	prev := uint64(0)
	for amount := uint64(1); amount <= 100_000; amount += 997 {
		cost := QuoteBuyGivenTokens(TotalSupply, amount)
		assert.GreaterOrEqual(t, cost, prev, "amount %d", amount)
		prev = cost
	}
}

func TestQuote_RoundTripNeverPaysOutMore(t *testing.T) {
	states := []uint64{TotalSupply, pumpReserves, TotalSupply - 2329803488261, ReservedSupply + 10}
	amounts := []uint64{1, 7, 35766, 1_000_000, 17514483287344, 11_000_000 * 1_000_000}
	for _, remaining := range states {
		for _, amount := range amounts {
			if amount > remaining-ReservedSupply {
				continue
			}
			cost := QuoteBuyGivenTokens(remaining, amount)
			refund := QuoteSellGivenTokens(remaining-amount, amount)
			assert.LessOrEqual(t, refund, cost, "remaining %d amount %d", remaining, amount)
		}
	}
}

func TestQuote_InverseBuyNeverOvercharges(t *testing.T) {
	for _, pay := range []uint64{1, 100_000_000, 1_000_000_000, 3333333333, 85005359057} {
		tokens := QuoteTokensGivenReserveBuy(TotalSupply, pay)
		assert.LessOrEqual(t, QuoteBuyGivenTokens(TotalSupply, tokens), pay, "pay %d", pay)
	}
}

func TestSpotPrice(t *testing.T) {
	start := SpotPrice(TotalSupply)
	assert.True(t, strings.HasPrefix(start.String(), "0.00002795899347623"), start.String())

	mid := SpotPrice(pumpReserves)
	end := SpotPrice(ReservedSupply)
	assert.True(t, start.LT(mid))
	assert.True(t, mid.LT(end))
}

func TestProgress(t *testing.T) {
	assert.True(t, Progress(TotalSupply).IsZero())
	assert.Equal(t, "0.500000000000000000", Progress(TotalSupply-SellableSupply/2).String())
	assert.Equal(t, "1.000000000000000000", Progress(ReservedSupply).String())
}

func TestMarketCap(t *testing.T) {
	// 30e9 * 1e15 / 1.073e15 lamports at launch.
	mc := MarketCap(TotalSupply)
	assert.True(t, strings.HasPrefix(mc.String(), "27958993476.23"), mc.String())
}
