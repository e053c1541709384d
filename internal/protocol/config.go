// =============================
// File: internal/protocol/config.go
// =============================
package protocol

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/fee"
)

// Config is the protocol-wide fee policy shared by every market.
// Trade operations receive it by value and never mutate it.
type Config struct {
	Authority          solana.PublicKey
	FeeRecipient       solana.PublicKey
	MigrationAuthority solana.PublicKey
	CreateFee          uint64
	TakerFeeRate       uint32 // sells
	MakerFeeRate       uint32 // buys
}

// Initialize sets the identities. Fees start at zero until UpdateFees.
func (c *Config) Initialize(authority, feeRecipient, migrationAuthority solana.PublicKey) {
	c.Authority = authority
	c.FeeRecipient = feeRecipient
	c.MigrationAuthority = migrationAuthority
}

// UpdateFees replaces the create fee and both rates, or nothing.
// The taker rate is validated before the maker rate.
func (c *Config) UpdateFees(createFee uint64, takerFeeRate, makerFeeRate uint32) error {
	if !fee.ValidRate(takerFeeRate) {
		return ErrInvalidTakerFeeRate
	}
	if !fee.ValidRate(makerFeeRate) {
		return ErrInvalidMakerFeeRate
	}
	c.CreateFee = createFee
	c.TakerFeeRate = takerFeeRate
	c.MakerFeeRate = makerFeeRate
	return nil
}
