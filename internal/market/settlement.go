// internal/market/settlement.go
package market

import "github.com/gagliardetto/solana-go"

// Side is the direction of a trade from the trader's point of view.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Mode says which leg of the trade the caller fixed.
type Mode uint8

const (
	ExactOut Mode = iota + 1
	ExactIn
)

func (m Mode) String() string {
	switch m {
	case ExactIn:
		return "exact_in"
	case ExactOut:
		return "exact_out"
	default:
		return "unknown"
	}
}

// Settlement is what the custody layer has to move after a trade.
//
// GrossReserve is the amount that crossed the curve: on a buy it goes from the
// trader to the reserve vault, on a sell it leaves the reserve vault and is
// split between the trader (NetReserve) and the fee recipient (Fee). On a buy
// Fee is paid by the trader on top of GrossReserve.
type Settlement struct {
	Side         Side
	Mode         Mode
	TokenAmount  uint64
	GrossReserve uint64
	Fee          uint64
}

// TotalPay is what a buyer is debited. Zero for sells.
func (s Settlement) TotalPay() uint64 {
	if s.Side != SideBuy {
		return 0
	}
	return s.GrossReserve + s.Fee
}

// NetReserve is what a seller is credited. Zero for buys.
func (s Settlement) NetReserve() uint64 {
	if s.Side != SideSell {
		return 0
	}
	return s.GrossReserve - s.Fee
}

// MintEffect asks the custody layer to mint Amount of Mint into Vault.
type MintEffect struct {
	Mint   solana.PublicKey
	Vault  solana.PublicKey
	Amount uint64
}
