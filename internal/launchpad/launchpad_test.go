package launchpad

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/fee"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/metrics"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
)

const (
	testCreateFee = 20_000_000
	onePercent    = fee.FeeRateBasisPoint / 100
	traderFunds   = 100_000_000_000
)

type fixture struct {
	lp        *Launchpad
	ledger    *Ledger
	store     storage.Store
	bus       *events.Bus
	collector *metrics.Collector

	authority    solana.PublicKey
	feeRecipient solana.PublicKey
	creator      solana.PublicKey
	trader       solana.PublicKey
	mint         solana.PublicKey
}

// failingStore fails SaveMarket on demand.
type failingStore struct {
	storage.Store
	fail atomic.Bool
}

func (s *failingStore) SaveMarket(ctx context.Context, m *market.Market) error {
	if s.fail.Load() {
		return errors.New("disk full")
	}
	return s.Store.SaveMarket(ctx, m)
}

func newFixture(t *testing.T, store storage.Store) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	f := &fixture{
		ledger:       NewLedger(),
		store:        store,
		bus:          events.NewBus(log, 256),
		collector:    metrics.NewCollector(),
		authority:    solana.NewWallet().PublicKey(),
		feeRecipient: solana.NewWallet().PublicKey(),
		creator:      solana.NewWallet().PublicKey(),
		trader:       solana.NewWallet().PublicKey(),
		mint:         solana.NewWallet().PublicKey(),
	}
	t.Cleanup(func() { _ = f.bus.Shutdown(context.Background()) })

	lp, err := New(Config{
		Logger:  log,
		Custody: f.ledger,
		Store:   store,
		Bus:     f.bus,
		Metrics: f.collector,
	})
	require.NoError(t, err)
	f.lp = lp

	require.NoError(t, lp.InitializeConfig(context.Background(), InitializeConfigArgs{
		Authority:          f.authority,
		FeeRecipient:       f.feeRecipient,
		MigrationAuthority: f.authority,
		CreateFee:          testCreateFee,
		TakerFeeRate:       onePercent,
		MakerFeeRate:       onePercent,
	}))
	require.NoError(t, f.ledger.Fund(ReserveAsset, f.creator, 1_000_000_000))
	require.NoError(t, f.ledger.Fund(ReserveAsset, f.trader, traderFunds))
	return f
}

func (f *fixture) create(t *testing.T) market.Market {
	t.Helper()
	m, err := f.lp.Create(context.Background(), f.creator, CreateArgs{
		Name:         "Pump Coin",
		Symbol:       "PUMP",
		URI:          "https://example.com/pump.json",
		Mint:         f.mint,
		FeeRecipient: f.feeRecipient,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) request(t *testing.T, amount, limit uint64) TradeRequest {
	t.Helper()
	accounts, err := f.lp.Accounts(f.mint)
	require.NoError(t, err)
	return TradeRequest{Mint: f.mint, Trader: f.trader, Accounts: accounts, Amount: amount, Limit: limit}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Store: storage.NewMemoryStore()})
	assert.Error(t, err)

	lp, err := New(Config{Custody: NewLedger(), Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	want, err := market.DeriveConfigAddress(market.DefaultProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, lp.ConfigAddress())

	_, err = lp.Config()
	assert.ErrorIs(t, err, protocol.ErrConfigNotInitialized)
}

func TestLaunchpad_InitializeConfig(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())

	cfg, err := f.lp.Config()
	require.NoError(t, err)
	assert.Equal(t, f.authority, cfg.Authority)
	assert.Equal(t, uint64(testCreateFee), cfg.CreateFee)

	err = f.lp.InitializeConfig(context.Background(), InitializeConfigArgs{Authority: f.trader})
	assert.ErrorIs(t, err, protocol.ErrConfigAlreadyInitialized)

	lp, err := New(Config{Custody: NewLedger(), Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	err = lp.InitializeConfig(context.Background(), InitializeConfigArgs{TakerFeeRate: fee.FeeRateBasisPoint + 1})
	assert.ErrorIs(t, err, protocol.ErrInvalidTakerFeeRate)
	_, err = lp.Config()
	assert.ErrorIs(t, err, protocol.ErrConfigNotInitialized)
}

func TestLaunchpad_UpdateFees(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()

	var got []events.FeesUpdatedEvent
	f.bus.SubscribeFunc(events.FeesUpdated, func(_ context.Context, e events.Event) error {
		got = append(got, e.(events.FeesUpdatedEvent))
		return nil
	})

	err := f.lp.UpdateFees(ctx, f.trader, 1, 2, 3)
	assert.ErrorIs(t, err, protocol.ErrAuthorityMismatch)

	err = f.lp.UpdateFees(ctx, f.authority, 1, 2, fee.FeeRateBasisPoint+1)
	assert.ErrorIs(t, err, protocol.ErrInvalidMakerFeeRate)
	cfg, err := f.lp.Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(testCreateFee), cfg.CreateFee)
	assert.Equal(t, onePercent, cfg.MakerFeeRate)

	require.NoError(t, f.lp.UpdateFees(ctx, f.authority, 5, 6, 7))
	cfg, err = f.lp.Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.CreateFee)
	assert.Equal(t, uint32(6), cfg.TakerFeeRate)
	assert.Equal(t, uint32(7), cfg.MakerFeeRate)

	stored, err := f.store.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, *stored)

	require.NoError(t, f.bus.Shutdown(ctx))
	require.Len(t, got, 1)
	assert.Equal(t, uint32(7), got[0].MakerFeeRate)
}

func TestLaunchpad_Create(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()

	var created []events.MarketCreatedEvent
	f.bus.SubscribeFunc(events.MarketCreated, func(_ context.Context, e events.Event) error {
		created = append(created, e.(events.MarketCreatedEvent))
		return nil
	})

	m := f.create(t)
	addrs, err := market.DeriveAddresses(f.mint, market.DefaultProgramID)
	require.NoError(t, err)

	assert.Equal(t, market.StateOpen, m.State())
	assert.Equal(t, f.lp.ConfigAddress(), m.Config)
	assert.Equal(t, addrs.CoinVault, m.CoinVault)
	assert.Equal(t, addrs.ReserveVault, m.ReserveVault)
	assert.Equal(t, curve.TotalSupply, m.RemainingSupply)
	assert.Zero(t, m.AccumulatedReserve)

	assert.Equal(t, uint64(testCreateFee), f.ledger.Balance(ReserveAsset, f.feeRecipient))
	assert.Equal(t, uint64(1_000_000_000-testCreateFee), f.ledger.Balance(ReserveAsset, f.creator))
	assert.Equal(t, curve.TotalSupply, f.ledger.Balance(f.mint, m.CoinVault))

	stored, err := f.store.LoadMarket(ctx, f.mint)
	require.NoError(t, err)
	assert.Equal(t, m, *stored)

	_, err = f.lp.Create(ctx, f.creator, CreateArgs{Symbol: "PUMP", Mint: f.mint, FeeRecipient: f.feeRecipient})
	assert.ErrorIs(t, err, protocol.ErrMarketAlreadyExists)

	require.NoError(t, f.bus.Shutdown(ctx))
	require.Len(t, created, 1)
	assert.Equal(t, "Pump Coin", created[0].Name)
	assert.Equal(t, addrs.Market, created[0].Market)

	err = testutil.GatherAndCompare(f.collector.Registry(), strings.NewReader(`
# HELP pumpcurve_markets_created_total Markets created and activated
# TYPE pumpcurve_markets_created_total counter
pumpcurve_markets_created_total 1
`), "pumpcurve_markets_created_total")
	assert.NoError(t, err)
}

func TestLaunchpad_CreateRejects(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()
	poor := solana.NewWallet().PublicKey()
	addrs, err := market.DeriveAddresses(f.mint, market.DefaultProgramID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		payer solana.PublicKey
		args  CreateArgs
		want  error
	}{
		{"short symbol", f.creator, CreateArgs{Symbol: "P", Mint: f.mint, FeeRecipient: f.feeRecipient}, protocol.ErrInvalidSymbol},
		{"long symbol", f.creator, CreateArgs{Symbol: "PUMPPUMPPUM", Mint: f.mint, FeeRecipient: f.feeRecipient}, protocol.ErrInvalidSymbol},
		{"wrong fee recipient", f.creator, CreateArgs{Symbol: "PUMP", Mint: f.mint, FeeRecipient: f.trader}, protocol.ErrFeeRecipientMismatch},
		{"cannot pay create fee", poor, CreateArgs{Symbol: "PUMP", Mint: f.mint, FeeRecipient: f.feeRecipient}, ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lp.Create(ctx, tt.payer, tt.args)
			assert.ErrorIs(t, err, tt.want)
			_, err = f.lp.Market(f.mint)
			assert.ErrorIs(t, err, protocol.ErrMarketNotFound)
			assert.Zero(t, f.ledger.Balance(f.mint, addrs.CoinVault))
		})
	}
}

func TestLaunchpad_TradeFlow(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()
	m := f.create(t)

	var executed []events.TradeExecutedEvent
	f.bus.SubscribeFunc(events.TradeExecuted, func(_ context.Context, e events.Event) error {
		executed = append(executed, e.(events.TradeExecutedEvent))
		return nil
	})

	q, err := f.lp.Quote(f.mint, market.SideBuy, market.ExactOut, 100_000_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(3083247688), q.GrossReserve)
	assert.Equal(t, uint64(30832476), q.Fee)

	trade, err := f.lp.Buy(ctx, f.request(t, 100_000_000_000_000, q.TotalPay()))
	require.NoError(t, err)
	assert.Equal(t, q, trade.Settlement)
	assert.NotEmpty(t, trade.ID)

	trade, err = f.lp.BuyExactIn(ctx, f.request(t, 1_000_000_000, 28547748981741))
	require.NoError(t, err)
	assert.Equal(t, uint64(28547748981741), trade.Settlement.TokenAmount)
	assert.Equal(t, uint64(10_000_000), trade.Settlement.Fee)

	trade, err = f.lp.Sell(ctx, f.request(t, 50_000_000_000_000, 1696532699))
	require.NoError(t, err)
	assert.Equal(t, uint64(1713669392), trade.Settlement.GrossReserve)
	assert.Equal(t, uint64(1696532699), trade.Settlement.NetReserve())

	trade, err = f.lp.SellExactOut(ctx, f.request(t, 1_000_000_000, 32031695364268))
	require.NoError(t, err)
	assert.Equal(t, uint64(1010101010), trade.Settlement.GrossReserve)
	assert.Equal(t, uint64(32031695364268), trade.Settlement.TokenAmount)

	assert.Equal(t, uint64(953483946382527), trade.RemainingSupply)
	assert.Equal(t, uint64(1359477286), trade.AccumulatedReserve)

	// custody mirrors the curve
	assert.Equal(t, uint64(98572452535), f.ledger.Balance(ReserveAsset, f.trader))
	assert.Equal(t, uint64(testCreateFee+68070179), f.ledger.Balance(ReserveAsset, f.feeRecipient))
	assert.Equal(t, uint64(1359477286), f.ledger.Balance(ReserveAsset, m.ReserveVault))
	assert.Equal(t, uint64(46516053617473), f.ledger.Balance(f.mint, f.trader))
	assert.Equal(t, uint64(953483946382527), f.ledger.Balance(f.mint, m.CoinVault))

	stored, err := f.store.LoadMarket(ctx, f.mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(953483946382527), stored.RemainingSupply)

	require.NoError(t, f.bus.Shutdown(ctx))
	require.Len(t, executed, 4)
	assert.Equal(t, []string{"buy", "buy", "sell", "sell"}, []string{executed[0].Side, executed[1].Side, executed[2].Side, executed[3].Side})
	assert.Equal(t, "exact_out", executed[3].Mode)
}

func TestLaunchpad_SlippageRejectsWithoutSideEffects(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()
	m := f.create(t)

	var rejected []events.TradeRejectedEvent
	f.bus.SubscribeFunc(events.TradeRejected, func(_ context.Context, e events.Event) error {
		rejected = append(rejected, e.(events.TradeRejectedEvent))
		return nil
	})

	_, err := f.lp.Buy(ctx, f.request(t, 100_000_000_000_000, 3083247688+30832476-1))
	assert.ErrorIs(t, err, protocol.ErrMaxPayExceeded)

	_, err = f.lp.BuyExactIn(ctx, f.request(t, 1_000_000_000, 28547748981742))
	assert.ErrorIs(t, err, protocol.ErrInsufficientReceive)

	_, err = f.lp.Sell(ctx, f.request(t, 1, 0))
	assert.ErrorIs(t, err, protocol.ErrInsufficientSupply)

	got, err := f.lp.Market(f.mint)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, uint64(traderFunds), f.ledger.Balance(ReserveAsset, f.trader))

	require.NoError(t, f.bus.Shutdown(ctx))
	require.Len(t, rejected, 3)
	assert.Equal(t, protocol.ErrMaxPayExceeded.Code, rejected[0].Code)
	assert.Equal(t, protocol.ErrInsufficientSupply.Code, rejected[2].Code)

	err = testutil.GatherAndCompare(f.collector.Registry(), strings.NewReader(`
# HELP pumpcurve_trades_total Trades attempted, by outcome
# TYPE pumpcurve_trades_total counter
pumpcurve_trades_total{mode="exact_in",result="InsufficientReceive",side="buy"} 1
pumpcurve_trades_total{mode="exact_in",result="InsufficientSupply",side="sell"} 1
pumpcurve_trades_total{mode="exact_out",result="MaxPayExceeded",side="buy"} 1
`), "pumpcurve_trades_total")
	assert.NoError(t, err)
}

func TestLaunchpad_AccountChecks(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	f.create(t)
	other := solana.NewWallet().PublicKey()

	tests := []struct {
		name   string
		mutate func(a *TradeAccounts)
		want   error
	}{
		{"config", func(a *TradeAccounts) { a.Config = other }, protocol.ErrConfigMismatch},
		{"fee recipient", func(a *TradeAccounts) { a.FeeRecipient = other }, protocol.ErrFeeRecipientMismatch},
		{"coin vault", func(a *TradeAccounts) { a.CoinVault = other }, protocol.ErrCoinVaultMismatch},
		{"reserve vault", func(a *TradeAccounts) { a.ReserveVault = other }, protocol.ErrSolVaultMismatch},
		{"token account mint", func(a *TradeAccounts) { a.TokenAccountMint = other }, protocol.ErrCoinMintMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(t, 1_000_000, 1_000_000_000)
			tt.mutate(&req.Accounts)
			_, err := f.lp.Buy(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.lp.Buy(context.Background(), TradeRequest{Mint: other})
	assert.ErrorIs(t, err, protocol.ErrMarketNotFound)
}

func TestLaunchpad_InsufficientFundsLeavesMarket(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	m := f.create(t)

	req := f.request(t, 1_000_000_000_000, 1_000_000_000)
	req.Trader = solana.NewWallet().PublicKey()
	_, err := f.lp.Buy(context.Background(), req)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	got, err := f.lp.Market(f.mint)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, curve.TotalSupply, f.ledger.Balance(f.mint, m.CoinVault))
}

func TestLaunchpad_RollbackOnStoreFailure(t *testing.T) {
	store := &failingStore{Store: storage.NewMemoryStore()}
	f := newFixture(t, store)
	ctx := context.Background()
	m := f.create(t)

	_, err := f.lp.Buy(ctx, f.request(t, 100_000_000_000_000, 10_000_000_000))
	require.NoError(t, err)
	before, err := f.lp.Market(f.mint)
	require.NoError(t, err)
	traderReserve := f.ledger.Balance(ReserveAsset, f.trader)
	traderTokens := f.ledger.Balance(f.mint, f.trader)

	store.fail.Store(true)
	_, err = f.lp.Sell(ctx, f.request(t, 50_000_000_000_000, 0))
	require.Error(t, err)

	after, err := f.lp.Market(f.mint)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, traderReserve, f.ledger.Balance(ReserveAsset, f.trader))
	assert.Equal(t, traderTokens, f.ledger.Balance(f.mint, f.trader))
	assert.Equal(t, before.AccumulatedReserve, f.ledger.Balance(ReserveAsset, m.ReserveVault))

	// creation goes through the same rollback
	creatorReserve := f.ledger.Balance(ReserveAsset, f.creator)
	doge := solana.NewWallet().PublicKey()
	_, err = f.lp.Create(ctx, f.creator, CreateArgs{Symbol: "DOGE", Mint: doge, FeeRecipient: f.feeRecipient})
	require.Error(t, err)
	assert.Equal(t, creatorReserve, f.ledger.Balance(ReserveAsset, f.creator))
	_, err = f.lp.Market(doge)
	assert.ErrorIs(t, err, protocol.ErrMarketNotFound)
}

func TestLaunchpad_Exhaustion(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()
	f.create(t)

	var exhausted []events.MarketExhaustedEvent
	f.bus.SubscribeFunc(events.MarketExhausted, func(_ context.Context, e events.Event) error {
		exhausted = append(exhausted, e.(events.MarketExhaustedEvent))
		return nil
	})

	_, err := f.lp.Buy(ctx, f.request(t, curve.SellableSupply, 85855412646))
	assert.ErrorIs(t, err, protocol.ErrMaxPayExceeded)

	trade, err := f.lp.Buy(ctx, f.request(t, curve.SellableSupply, 85855412647))
	require.NoError(t, err)
	assert.Equal(t, market.StateExhausted, trade.State)
	assert.Equal(t, curve.ReservedSupply, trade.RemainingSupply)
	assert.Equal(t, uint64(85005359057), trade.AccumulatedReserve)

	_, err = f.lp.Sell(ctx, f.request(t, 1, 0))
	assert.ErrorIs(t, err, protocol.ErrAlreadyLaunched)
	_, err = f.lp.BuyExactIn(ctx, f.request(t, 1, 0))
	assert.ErrorIs(t, err, protocol.ErrAlreadyLaunched)

	require.NoError(t, f.bus.Shutdown(ctx))
	require.Len(t, exhausted, 1)
	assert.Equal(t, curve.ReservedSupply, exhausted[0].RemainingSupply)

	err = testutil.GatherAndCompare(f.collector.Registry(), strings.NewReader(`
# HELP pumpcurve_markets_exhausted_total Markets whose curve closed
# TYPE pumpcurve_markets_exhausted_total counter
pumpcurve_markets_exhausted_total 1
`), "pumpcurve_markets_exhausted_total")
	assert.NoError(t, err)
}

func TestLaunchpad_ConcurrentTrades(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	ctx := context.Background()
	m := f.create(t)

	const traders = 8
	const amount = 1_000_000_000_000

	wallets := make([]solana.PublicKey, traders)
	for i := range wallets {
		wallets[i] = solana.NewWallet().PublicKey()
		require.NoError(t, f.ledger.Fund(ReserveAsset, wallets[i], 10_000_000_000))
	}
	accounts, err := f.lp.Accounts(f.mint)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var paid atomic.Uint64
	errs := make(chan error, traders)
	for _, w := range wallets {
		wg.Add(1)
		go func(trader solana.PublicKey) {
			defer wg.Done()
			trade, err := f.lp.Buy(ctx, TradeRequest{Mint: f.mint, Trader: trader, Accounts: accounts, Amount: amount, Limit: 10_000_000_000})
			if err != nil {
				errs <- err
				return
			}
			paid.Add(trade.Settlement.GrossReserve)
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.lp.Market(f.mint)
	require.NoError(t, err)
	assert.Equal(t, curve.TotalSupply-traders*amount, got.RemainingSupply)
	assert.Equal(t, paid.Load(), got.AccumulatedReserve)
	assert.Equal(t, got.AccumulatedReserve, f.ledger.Balance(ReserveAsset, m.ReserveVault))
	for _, w := range wallets {
		assert.Equal(t, uint64(amount), f.ledger.Balance(f.mint, w))
	}
}

func TestLaunchpad_Restore(t *testing.T) {
	store := storage.NewMemoryStore()
	f := newFixture(t, store)
	ctx := context.Background()
	f.create(t)
	_, err := f.lp.Buy(ctx, f.request(t, 11_000_000_000_000, 1_000_000_000))
	require.NoError(t, err)
	want, err := f.lp.Market(f.mint)
	require.NoError(t, err)

	lp, err := New(Config{Logger: zaptest.NewLogger(t), Custody: f.ledger, Store: store})
	require.NoError(t, err)
	require.NoError(t, lp.Restore(ctx))

	got, err := lp.Market(f.mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, lp.Markets(), 1)

	cfg, err := lp.Config()
	require.NoError(t, err)
	assert.Equal(t, f.authority, cfg.Authority)

	empty, err := New(Config{Custody: NewLedger(), Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	assert.ErrorIs(t, empty.Restore(ctx), protocol.ErrConfigNotInitialized)
}

func TestLaunchpad_QuoteDoesNotMutate(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	m := f.create(t)

	s, err := f.lp.Quote(f.mint, market.SideBuy, market.ExactIn, 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(34612903225806), s.TokenAmount)

	_, err = f.lp.Quote(f.mint, market.SideSell, market.ExactOut, 1)
	assert.ErrorIs(t, err, protocol.ErrInsufficientReceive)

	got, err := f.lp.Market(f.mint)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
