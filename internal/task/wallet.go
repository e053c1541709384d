// ==================================
// File: internal/task/wallet.go
// ==================================
package task

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Wallet is a named participant of a script.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	// Reserve is the starting reserve balance in base units.
	Reserve uint64
}

// NewWallet создаёт кошелёк из base58-ключа. Пустой ключ генерирует новый.
func NewWallet(name, privateKeyBase58 string, reserve uint64) (*Wallet, error) {
	var privateKey solana.PrivateKey
	if privateKeyBase58 == "" {
		privateKey = solana.NewWallet().PrivateKey
	} else {
		var err error
		privateKey, err = solana.PrivateKeyFromBase58(privateKeyBase58)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	}

	return &Wallet{
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		Reserve:    reserve,
	}, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
