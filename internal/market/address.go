// =============================
// File: internal/market/address.go
// =============================
package market

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	ConfigSeed       = "config"
	CoinSeed         = "coin"
	ReserveVaultSeed = "coin_sol_vault"
)

// DefaultProgramID is the program the market addresses are derived under.
var DefaultProgramID = solana.MustPublicKeyFromBase58("7qmPXRXcGm6BNEGGg5y3Mr6Cw4Z1gYFY9jDRgzEv5RFS")

// Addresses groups every account a market is bound to.
type Addresses struct {
	Market           solana.PublicKey
	CoinBump         uint8
	CoinVault        solana.PublicKey
	ReserveVault     solana.PublicKey
	ReserveVaultBump uint8
}

// DeriveConfigAddress returns the address of the shared protocol config.
func DeriveConfigAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(ConfigSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive config address: %w", err)
	}
	return addr, nil
}

// DeriveMarketAddress returns the market PDA for mint.
func DeriveMarketAddress(mint, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(CoinSeed), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive market address: %w", err)
	}
	return addr, bump, nil
}

// DeriveReserveVault returns the PDA holding the reserve escrowed for mint.
func DeriveReserveVault(mint, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(ReserveVaultSeed), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive reserve vault: %w", err)
	}
	return addr, bump, nil
}

// DeriveAddresses resolves the market PDA, its token vault (the associated
// token account owned by the market) and the reserve vault.
func DeriveAddresses(mint, programID solana.PublicKey) (Addresses, error) {
	var a Addresses
	var err error

	a.Market, a.CoinBump, err = DeriveMarketAddress(mint, programID)
	if err != nil {
		return Addresses{}, err
	}
	a.CoinVault, _, err = solana.FindAssociatedTokenAddress(a.Market, mint)
	if err != nil {
		return Addresses{}, fmt.Errorf("failed to derive coin vault: %w", err)
	}
	a.ReserveVault, a.ReserveVaultBump, err = DeriveReserveVault(mint, programID)
	if err != nil {
		return Addresses{}, err
	}
	return a, nil
}
