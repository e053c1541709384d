// internal/launchpad/launchpad.go
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/metrics"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
)

// Launchpad owns the protocol config and every market. It checks accounts
// and signers, runs the market operations and moves funds through Custody.
// Trades on one market are serialized; different markets run in parallel.
type Launchpad struct {
	mu         sync.RWMutex
	config     *protocol.Config
	configAddr solana.PublicKey
	markets    map[solana.PublicKey]*entry

	programID solana.PublicKey
	custody   Custody
	store     storage.Store
	bus       *events.Bus
	metrics   *metrics.Collector
	logger    *zap.Logger
}

type entry struct {
	mu     sync.Mutex
	market *market.Market
}

// Config wires a Launchpad. Bus and Metrics are optional.
type Config struct {
	Logger    *zap.Logger
	Custody   Custody
	Store     storage.Store
	Bus       *events.Bus
	Metrics   *metrics.Collector
	ProgramID solana.PublicKey // zero means market.DefaultProgramID
}

// New creates a Launchpad without a protocol config. Call InitializeConfig
// or Restore before trading.
func New(cfg Config) (*Launchpad, error) {
	if cfg.Custody == nil || cfg.Store == nil {
		return nil, errors.New("launchpad: custody and store are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	programID := cfg.ProgramID
	if programID.IsZero() {
		programID = market.DefaultProgramID
	}
	configAddr, err := market.DeriveConfigAddress(programID)
	if err != nil {
		return nil, err
	}

	return &Launchpad{
		configAddr: configAddr,
		markets:    make(map[solana.PublicKey]*entry),
		programID:  programID,
		custody:    cfg.Custody,
		store:      cfg.Store,
		bus:        cfg.Bus,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.Named("launchpad"),
	}, nil
}

// ConfigAddress is the account every market references as its config.
func (l *Launchpad) ConfigAddress() solana.PublicKey {
	return l.configAddr
}

// Config returns a copy of the protocol config.
func (l *Launchpad) Config() (protocol.Config, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.config == nil {
		return protocol.Config{}, protocol.ErrConfigNotInitialized
	}
	return *l.config, nil
}

// Restore loads the config and every market from the store.
func (l *Launchpad) Restore(ctx context.Context) error {
	cfg, err := l.store.LoadConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return protocol.ErrConfigNotInitialized
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	markets, err := l.store.ListMarkets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load markets: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = cfg
	for _, m := range markets {
		l.markets[m.Mint] = &entry{market: m}
	}
	l.logger.Info("State restored", zap.Int("markets", len(markets)))
	return nil
}

// InitializeConfigArgs are the arguments of InitializeConfig.
type InitializeConfigArgs struct {
	Authority          solana.PublicKey
	FeeRecipient       solana.PublicKey
	MigrationAuthority solana.PublicKey
	CreateFee          uint64
	TakerFeeRate       uint32
	MakerFeeRate       uint32
}

// InitializeConfig creates the protocol config. It can run once.
func (l *Launchpad) InitializeConfig(ctx context.Context, args InitializeConfigArgs) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config != nil {
		return protocol.ErrConfigAlreadyInitialized
	}

	cfg := &protocol.Config{}
	cfg.Initialize(args.Authority, args.FeeRecipient, args.MigrationAuthority)
	if err := cfg.UpdateFees(args.CreateFee, args.TakerFeeRate, args.MakerFeeRate); err != nil {
		return err
	}
	if err := l.store.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	l.config = cfg

	l.logger.Info("Protocol config initialized",
		zap.Stringer("authority", cfg.Authority),
		zap.Stringer("fee_recipient", cfg.FeeRecipient),
		zap.Uint64("create_fee", cfg.CreateFee),
		zap.Uint32("taker_fee_rate", cfg.TakerFeeRate),
		zap.Uint32("maker_fee_rate", cfg.MakerFeeRate))
	return nil
}

// UpdateFees replaces the fee policy. signer must be the config authority.
func (l *Launchpad) UpdateFees(ctx context.Context, signer solana.PublicKey, createFee uint64, takerFeeRate, makerFeeRate uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config == nil {
		return protocol.ErrConfigNotInitialized
	}
	if !signer.Equals(l.config.Authority) {
		return protocol.ErrAuthorityMismatch
	}

	next := *l.config
	if err := next.UpdateFees(createFee, takerFeeRate, makerFeeRate); err != nil {
		return err
	}
	if err := l.store.SaveConfig(ctx, &next); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	*l.config = next

	l.logger.Info("Fees updated",
		zap.Uint64("create_fee", createFee),
		zap.Uint32("taker_fee_rate", takerFeeRate),
		zap.Uint32("maker_fee_rate", makerFeeRate))
	l.publish(events.FeesUpdatedEvent{
		BaseEvent:    events.NewBase(events.FeesUpdated),
		CreateFee:    createFee,
		TakerFeeRate: takerFeeRate,
		MakerFeeRate: makerFeeRate,
	})
	return nil
}

// Market returns a copy of the market for mint.
func (l *Launchpad) Market(mint solana.PublicKey) (market.Market, error) {
	e, err := l.entry(mint)
	if err != nil {
		return market.Market{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.market, nil
}

// Markets returns copies of every market.
func (l *Launchpad) Markets() []market.Market {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.markets))
	for _, e := range l.markets {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	out := make([]market.Market, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, *e.market)
		e.mu.Unlock()
	}
	return out
}

func (l *Launchpad) entry(mint solana.PublicKey) (*entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.markets[mint]
	if !ok {
		return nil, protocol.ErrMarketNotFound
	}
	return e, nil
}

func (l *Launchpad) publish(ev events.Event) {
	if l.bus == nil {
		return
	}
	if err := l.bus.Publish(ev); err != nil {
		l.logger.Warn("Event not published",
			zap.String("event_type", string(ev.Type())),
			zap.Error(err))
	}
}
