// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Store определяет интерфейс хранилища записей рынков и конфигурации.
type Store interface {
	// Рынки
	SaveMarket(ctx context.Context, m *market.Market) error
	LoadMarket(ctx context.Context, mint solana.PublicKey) (*market.Market, error)
	ListMarkets(ctx context.Context) ([]*market.Market, error)

	// Конфигурация
	SaveConfig(ctx context.Context, cfg *protocol.Config) error
	LoadConfig(ctx context.Context) (*protocol.Config, error)
}
