// internal/curve/constants.go
package curve

// Геометрия кривой. Токен в минимальных единицах (6 знаков), резерв в лампортах (9 знаков).
const (
	Decimals        = 6
	ReserveDecimals = 9

	// TotalSupply is the fixed supply minted into custody at activation.
	TotalSupply uint64 = 1_000_000_000 * 1_000_000
	// ReservedSupply never trades on the curve. Once remaining supply falls to
	// this level the market is exhausted.
	ReservedSupply uint64 = 206_900_000 * 1_000_000
	SellableSupply        = TotalSupply - ReservedSupply

	VirtualTokenOffset   uint64 = 73_000_000 * 1_000_000
	VirtualReserveOffset uint64 = 30 * 1_000_000_000
	MaxVirtualToken             = TotalSupply + VirtualTokenOffset
)
