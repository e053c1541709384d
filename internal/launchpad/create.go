// internal/launchpad/create.go
package launchpad

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/logger"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

// CreateArgs describes a new market. FeeRecipient is the account the payer
// names for the create fee and must match the config.
type CreateArgs struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	FeeRecipient solana.PublicKey
}

// Create opens a market for args.Mint: the payer pays the create fee, the
// full supply is minted into the coin vault and the market is persisted.
func (l *Launchpad) Create(ctx context.Context, payer solana.PublicKey, args CreateArgs) (market.Market, error) {
	cfg, err := l.Config()
	if err != nil {
		return market.Market{}, err
	}
	if !market.CheckSymbol(args.Symbol) {
		return market.Market{}, protocol.ErrInvalidSymbol
	}
	if !args.FeeRecipient.Equals(cfg.FeeRecipient) {
		return market.Market{}, protocol.ErrFeeRecipientMismatch
	}

	addrs, err := market.DeriveAddresses(args.Mint, l.programID)
	if err != nil {
		return market.Market{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.markets[args.Mint]; exists {
		return market.Market{}, protocol.ErrMarketAlreadyExists
	}

	m := &market.Market{}
	m.Initialize(l.configAddr, args.Mint, addrs.CoinVault, args.Symbol, addrs.CoinBump)
	m.SetReserveVault(addrs.ReserveVault, addrs.ReserveVaultBump)
	minted, err := m.Activate()
	if err != nil {
		return market.Market{}, err
	}

	moves := []Movement{
		{Kind: MoveTransfer, Asset: ReserveAsset, From: payer, To: cfg.FeeRecipient, Amount: cfg.CreateFee},
		{Kind: MoveMint, Asset: minted.Mint, To: minted.Vault, Amount: minted.Amount},
	}
	if err := l.custody.Apply(ctx, moves); err != nil {
		return market.Market{}, fmt.Errorf("failed to settle market creation: %w", err)
	}
	if err := l.store.SaveMarket(ctx, m); err != nil {
		l.rollback(ctx, moves)
		return market.Market{}, fmt.Errorf("failed to persist market: %w", err)
	}
	l.markets[args.Mint] = &entry{market: m}

	logger.WithMarket(l.logger, m.Mint, m.Symbol).Info("Market created",
		zap.String("name", args.Name),
		zap.Stringer("creator", payer),
		zap.Stringer("coin_vault", m.CoinVault),
		zap.Stringer("reserve_vault", m.ReserveVault),
		zap.Uint64("create_fee", cfg.CreateFee))

	if l.metrics != nil {
		l.metrics.RecordMarketCreated(m.Mint.String(), m.RemainingSupply)
	}
	l.publish(events.MarketCreatedEvent{
		BaseEvent:    events.NewBase(events.MarketCreated),
		Mint:         m.Mint,
		Market:       addrs.Market,
		Symbol:       m.Symbol,
		Name:         args.Name,
		URI:          args.URI,
		Creator:      payer,
		CreateFee:    cfg.CreateFee,
		CoinVault:    m.CoinVault,
		ReserveVault: m.ReserveVault,
	})

	return *m, nil
}

// rollback undoes moves that were applied but could not be committed.
func (l *Launchpad) rollback(ctx context.Context, moves []Movement) {
	if err := l.custody.Apply(context.WithoutCancel(ctx), Reverse(moves)); err != nil {
		// custody и состояние рынка разошлись
		l.logger.Error("Custody rollback failed", zap.Error(err))
	}
}

// MarketAddress returns the market PDA for mint.
func (l *Launchpad) MarketAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := market.DeriveMarketAddress(mint, l.programID)
	return addr, err
}
