// =============================
// File: internal/launchpad/trade.go
// =============================
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/logger"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

// TradeAccounts are the accounts a trader names in a trade. Each of them is
// checked against the market and the config before anything moves.
type TradeAccounts struct {
	Config       solana.PublicKey
	FeeRecipient solana.PublicKey
	CoinVault    solana.PublicKey
	ReserveVault solana.PublicKey
	// TokenAccountMint is the mint of the trader's token account.
	TokenAccountMint solana.PublicKey
}

// TradeRequest is one trade. Amount and Limit mean different things per
// operation:
//
//	Buy          Amount = tokens out,     Limit = max reserve paid incl. fee
//	BuyExactIn   Amount = reserve in,     Limit = min tokens out
//	Sell         Amount = tokens in,      Limit = min reserve received net of fee
//	SellExactOut Amount = reserve out net, Limit = max tokens sold
type TradeRequest struct {
	Mint     solana.PublicKey
	Trader   solana.PublicKey
	Accounts TradeAccounts
	Amount   uint64
	Limit    uint64
}

// Trade is a committed trade.
type Trade struct {
	ID         string
	Mint       solana.PublicKey
	Trader     solana.PublicKey
	Settlement market.Settlement
	// market state after the trade
	RemainingSupply    uint64
	AccumulatedReserve uint64
	State              market.State
}

// Accounts returns the accounts a valid trade on mint must name.
func (l *Launchpad) Accounts(mint solana.PublicKey) (TradeAccounts, error) {
	cfg, err := l.Config()
	if err != nil {
		return TradeAccounts{}, err
	}
	m, err := l.Market(mint)
	if err != nil {
		return TradeAccounts{}, err
	}
	return TradeAccounts{
		Config:           m.Config,
		FeeRecipient:     cfg.FeeRecipient,
		CoinVault:        m.CoinVault,
		ReserveVault:     m.ReserveVault,
		TokenAccountMint: m.Mint,
	}, nil
}

// Buy buys exactly req.Amount tokens.
func (l *Launchpad) Buy(ctx context.Context, req TradeRequest) (Trade, error) {
	return l.execute(ctx, market.SideBuy, market.ExactOut, req)
}

// BuyExactIn spends exactly req.Amount of reserve on the curve.
func (l *Launchpad) BuyExactIn(ctx context.Context, req TradeRequest) (Trade, error) {
	return l.execute(ctx, market.SideBuy, market.ExactIn, req)
}

// Sell sells exactly req.Amount tokens.
func (l *Launchpad) Sell(ctx context.Context, req TradeRequest) (Trade, error) {
	return l.execute(ctx, market.SideSell, market.ExactIn, req)
}

// SellExactOut sells whatever amount of tokens nets exactly req.Amount of reserve.
func (l *Launchpad) SellExactOut(ctx context.Context, req TradeRequest) (Trade, error) {
	return l.execute(ctx, market.SideSell, market.ExactOut, req)
}

// Quote prices a trade against the current market state without slippage
// bounds and without changing anything.
func (l *Launchpad) Quote(mint solana.PublicKey, side market.Side, mode market.Mode, amount uint64) (market.Settlement, error) {
	cfg, err := l.Config()
	if err != nil {
		return market.Settlement{}, err
	}
	m, err := l.Market(mint)
	if err != nil {
		return market.Settlement{}, err
	}

	limit := uint64(math.MaxUint64)
	if mode == market.ExactIn {
		limit = 0
	}
	return operation(&m, cfg, side, mode, amount, limit)
}

func operation(m *market.Market, cfg protocol.Config, side market.Side, mode market.Mode, amount, limit uint64) (market.Settlement, error) {
	switch {
	case side == market.SideBuy && mode == market.ExactOut:
		return m.BuyExactOut(cfg, amount, limit)
	case side == market.SideBuy && mode == market.ExactIn:
		return m.BuyExactIn(cfg, amount, limit)
	case side == market.SideSell && mode == market.ExactIn:
		return m.SellExactIn(cfg, amount, limit)
	case side == market.SideSell && mode == market.ExactOut:
		return m.SellExactOut(cfg, amount, limit)
	}
	return market.Settlement{}, fmt.Errorf("unsupported trade %s/%s", side, mode)
}

func checkAccounts(cfg protocol.Config, m *market.Market, a TradeAccounts) error {
	switch {
	case !a.Config.Equals(m.Config):
		return protocol.ErrConfigMismatch
	case !a.FeeRecipient.Equals(cfg.FeeRecipient):
		return protocol.ErrFeeRecipientMismatch
	case !a.CoinVault.Equals(m.CoinVault):
		return protocol.ErrCoinVaultMismatch
	case !a.ReserveVault.Equals(m.ReserveVault):
		return protocol.ErrSolVaultMismatch
	case !a.TokenAccountMint.Equals(m.Mint):
		return protocol.ErrCoinMintMismatch
	}
	return nil
}

// movements turns a settlement into custody movements. The trader's token
// balance is kept under the trader's own key.
func movements(m *market.Market, trader, feeRecipient solana.PublicKey, s market.Settlement) []Movement {
	if s.Side == market.SideBuy {
		return []Movement{
			{Kind: MoveTransfer, Asset: ReserveAsset, From: trader, To: m.ReserveVault, Amount: s.GrossReserve},
			{Kind: MoveTransfer, Asset: ReserveAsset, From: trader, To: feeRecipient, Amount: s.Fee},
			{Kind: MoveTransfer, Asset: m.Mint, From: m.CoinVault, To: trader, Amount: s.TokenAmount},
		}
	}
	return []Movement{
		{Kind: MoveTransfer, Asset: m.Mint, From: trader, To: m.CoinVault, Amount: s.TokenAmount},
		{Kind: MoveTransfer, Asset: ReserveAsset, From: m.ReserveVault, To: trader, Amount: s.NetReserve()},
		{Kind: MoveTransfer, Asset: ReserveAsset, From: m.ReserveVault, To: feeRecipient, Amount: s.Fee},
	}
}

func (l *Launchpad) execute(ctx context.Context, side market.Side, mode market.Mode, req TradeRequest) (Trade, error) {
	start := time.Now()
	tradeID := uuid.NewString()
	log := l.logger.With(
		zap.String("trade_id", tradeID),
		zap.Stringer("mint", req.Mint),
		zap.Stringer("trader", req.Trader),
		zap.Stringer("side", side),
		zap.Stringer("mode", mode))

	trade, err := l.settle(ctx, side, mode, req)
	if err != nil {
		l.rejected(log, tradeID, side, mode, req, err)
		return Trade{}, err
	}
	trade.ID = tradeID

	s := trade.Settlement
	log.Info("Trade executed",
		zap.Uint64("tokens", s.TokenAmount),
		zap.Uint64("gross_reserve", s.GrossReserve),
		zap.Uint64("fee", s.Fee),
		zap.Uint64("remaining_supply", trade.RemainingSupply),
		zap.Uint64("accumulated_reserve", trade.AccumulatedReserve),
		zap.Duration("elapsed", time.Since(start)))

	if l.metrics != nil {
		l.metrics.RecordTrade(side.String(), mode.String(), req.Mint.String(),
			s.GrossReserve, s.Fee, trade.RemainingSupply, trade.AccumulatedReserve, time.Since(start))
	}
	l.publish(events.TradeExecutedEvent{
		BaseEvent:          events.NewBase(events.TradeExecuted),
		TradeID:            tradeID,
		Mint:               req.Mint,
		Trader:             req.Trader,
		Side:               side.String(),
		Mode:               mode.String(),
		TokenAmount:        s.TokenAmount,
		GrossReserve:       s.GrossReserve,
		Fee:                s.Fee,
		RemainingSupply:    trade.RemainingSupply,
		AccumulatedReserve: trade.AccumulatedReserve,
	})
	return trade, nil
}

// settle runs the market operation on a copy, moves the funds, persists the
// copy and only then swaps it in. Any failure leaves the market as it was.
func (l *Launchpad) settle(ctx context.Context, side market.Side, mode market.Mode, req TradeRequest) (Trade, error) {
	cfg, err := l.Config()
	if err != nil {
		return Trade{}, err
	}
	e, err := l.entry(req.Mint)
	if err != nil {
		return Trade{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkAccounts(cfg, e.market, req.Accounts); err != nil {
		return Trade{}, err
	}

	next := *e.market
	s, err := operation(&next, cfg, side, mode, req.Amount, req.Limit)
	if err != nil {
		return Trade{}, err
	}

	moves := movements(&next, req.Trader, cfg.FeeRecipient, s)
	if err := l.custody.Apply(ctx, moves); err != nil {
		return Trade{}, fmt.Errorf("failed to settle trade: %w", err)
	}
	if err := l.store.SaveMarket(ctx, &next); err != nil {
		l.rollback(ctx, moves)
		return Trade{}, fmt.Errorf("failed to persist market: %w", err)
	}

	before := e.market.State()
	*e.market = next

	if before == market.StateOpen && next.State() == market.StateExhausted {
		logger.WithMarket(l.logger, next.Mint, next.Symbol).Info("Curve exhausted",
			zap.Uint64("remaining_supply", next.RemainingSupply),
			zap.Uint64("accumulated_reserve", next.AccumulatedReserve))
		if l.metrics != nil {
			l.metrics.RecordMarketExhausted()
		}
		l.publish(events.MarketExhaustedEvent{
			BaseEvent:          events.NewBase(events.MarketExhausted),
			Mint:               next.Mint,
			RemainingSupply:    next.RemainingSupply,
			AccumulatedReserve: next.AccumulatedReserve,
		})
	}

	return Trade{
		Mint:               req.Mint,
		Trader:             req.Trader,
		Settlement:         s,
		RemainingSupply:    next.RemainingSupply,
		AccumulatedReserve: next.AccumulatedReserve,
		State:              next.State(),
	}, nil
}

func (l *Launchpad) rejected(log *zap.Logger, tradeID string, side market.Side, mode market.Mode, req TradeRequest, err error) {
	result := "error"
	code := 0
	var perr *protocol.Error
	if errors.As(err, &perr) {
		result = perr.Name
		code = perr.Code
	}

	if perr != nil && perr.Kind() == protocol.KindInternal {
		log.Error("Trade failed", zap.Error(err))
	} else {
		log.Warn("Trade rejected", zap.Error(err))
	}

	if l.metrics != nil {
		l.metrics.RecordRejected(side.String(), mode.String(), result)
	}
	l.publish(events.TradeRejectedEvent{
		BaseEvent: events.NewBase(events.TradeRejected),
		TradeID:   tradeID,
		Mint:      req.Mint,
		Trader:    req.Trader,
		Side:      side.String(),
		Mode:      mode.String(),
		Code:      code,
		Err:       err,
	})
}
