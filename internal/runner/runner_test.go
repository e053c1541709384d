package runner

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/launchpad"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
	"github.com/rovshanmuradov/pumpcurve/internal/task"
)

func newWallet(t *testing.T, name string, reserve uint64) *task.Wallet {
	t.Helper()
	w, err := task.NewWallet(name, "", reserve)
	require.NoError(t, err)
	return w
}

func setup(t *testing.T, admin *task.Wallet) (*launchpad.Launchpad, *launchpad.Ledger) {
	t.Helper()
	ledger := launchpad.NewLedger()
	lp, err := launchpad.New(launchpad.Config{
		Logger:  zaptest.NewLogger(t),
		Custody: ledger,
		Store:   storage.NewMemoryStore(),
	})
	require.NoError(t, err)
	require.NoError(t, lp.InitializeConfig(context.Background(), launchpad.InitializeConfigArgs{
		Authority:    admin.PublicKey,
		FeeRecipient: solana.NewWallet().PublicKey(),
		CreateFee:    20_000_000,
		TakerFeeRate: 1_000_000,
		MakerFeeRate: 1_000_000,
	}))
	return lp, ledger
}

func trade(name, symbol, wallet string, op task.OperationType, amount uint64) *task.Task {
	return &task.Task{TaskName: name, Market: symbol, WalletName: wallet, Operation: op, Amount: amount}
}

func TestRunner_Run(t *testing.T) {
	admin := newWallet(t, "admin", 1_000_000_000)
	trader := newWallet(t, "trader", 200_000_000_000)
	whale := newWallet(t, "whale", 200_000_000_000)
	lp, ledger := setup(t, admin)

	script := &task.Script{
		Wallets: map[string]*task.Wallet{"admin": admin, "trader": trader, "whale": whale},
		Markets: []task.MarketSpec{
			{Name: "Pump", Symbol: "PUMP", Creator: "admin", Mint: solana.NewWallet().PublicKey()},
			{Name: "Doge", Symbol: "DOGE", Creator: "admin", Mint: solana.NewWallet().PublicKey()},
		},
		Tasks: []*task.Task{
			trade("buy out", "PUMP", "trader", task.OperationBuy, 100_000_000_000_000),
			trade("whale", "DOGE", "whale", task.OperationBuy, curve.SellableSupply),
			trade("buy in", "PUMP", "trader", task.OperationBuyExactIn, 1_000_000_000),
			trade("too late", "DOGE", "whale", task.OperationSell, 1),
			trade("sell in", "PUMP", "trader", task.OperationSell, 50_000_000_000_000),
			trade("sell out", "PUMP", "trader", task.OperationSellExactOut, 1_000_000_000),
			{TaskName: "hijack", WalletName: "trader", Operation: task.OperationUpdateFees, Fees: &task.FeeUpdate{}},
			{TaskName: "free", WalletName: "admin", Operation: task.OperationUpdateFees, Fees: &task.FeeUpdate{}},
			trade("free buy", "PUMP", "trader", task.OperationBuyExactIn, 1_000_000_000),
		},
	}

	report, err := NewRunner(lp, ledger, 2, zaptest.NewLogger(t)).Run(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, report.Results, len(script.Tasks))

	res := report.Results
	require.NoError(t, res[0].Err)
	assert.Equal(t, uint64(3083247688), res[0].Trade.Settlement.GrossReserve)
	require.NoError(t, res[2].Err)
	assert.Equal(t, uint64(28547748981741), res[2].Trade.Settlement.TokenAmount)
	require.NoError(t, res[4].Err)
	assert.Equal(t, uint64(1696532699), res[4].Trade.Settlement.NetReserve())
	require.NoError(t, res[5].Err)
	assert.Equal(t, uint64(32031695364268), res[5].Trade.Settlement.TokenAmount)

	require.NoError(t, res[1].Err)
	assert.Equal(t, market.StateExhausted, res[1].Trade.State)
	assert.ErrorIs(t, res[3].Err, protocol.ErrAlreadyLaunched)

	assert.ErrorIs(t, res[6].Err, protocol.ErrAuthorityMismatch)
	require.NoError(t, res[7].Err)

	require.NoError(t, res[8].Err)
	assert.Zero(t, res[8].Trade.Settlement.Fee)

	assert.Equal(t, 7, report.Executed)
	assert.Equal(t, 2, report.Rejected)

	require.Len(t, report.Markets, 2)
	assert.Equal(t, "DOGE", report.Markets[0].Symbol)
	assert.Equal(t, market.StateExhausted, report.Markets[0].State())
	assert.Equal(t, "PUMP", report.Markets[1].Symbol)
}

func TestRunner_CreateFailureStops(t *testing.T) {
	admin := newWallet(t, "admin", 0)
	lp, ledger := setup(t, admin)

	script := &task.Script{
		Wallets: map[string]*task.Wallet{"admin": admin},
		Markets: []task.MarketSpec{{Symbol: "PUMP", Creator: "admin", Mint: solana.NewWallet().PublicKey()}},
		Tasks:   []*task.Task{trade("buy", "PUMP", "admin", task.OperationBuy, 1)},
	}

	_, err := NewRunner(lp, ledger, 1, zaptest.NewLogger(t)).Run(context.Background(), script)
	assert.ErrorIs(t, err, launchpad.ErrInsufficientFunds)
}

func TestRunner_CanceledContext(t *testing.T) {
	admin := newWallet(t, "admin", 1_000_000_000)
	lp, ledger := setup(t, admin)

	script := &task.Script{
		Wallets: map[string]*task.Wallet{"admin": admin},
		Markets: []task.MarketSpec{{Symbol: "PUMP", Creator: "admin", Mint: solana.NewWallet().PublicKey()}},
		Tasks:   []*task.Task{trade("buy", "PUMP", "admin", task.OperationBuy, 1)},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(lp, ledger, 1, zaptest.NewLogger(t)).Run(ctx, script)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlippageBounds(t *testing.T) {
	one := decimal.NewFromInt(1)
	assert.Equal(t, uint64(101), widen(100, one))
	assert.Equal(t, uint64(103), widen(101, one))
	assert.Equal(t, uint64(99), narrow(100, one))
	assert.Equal(t, uint64(99), narrow(101, one))
	assert.Equal(t, uint64(7), widen(7, decimal.Zero))
	assert.Equal(t, ^uint64(0), widen(^uint64(0), one))
	assert.Zero(t, narrow(5, decimal.NewFromInt(100)))
}

func TestRunner_ReusesExistingMarket(t *testing.T) {
	admin := newWallet(t, "admin", 1_000_000_000)
	lp, ledger := setup(t, admin)

	mint := solana.NewWallet().PublicKey()
	script := &task.Script{
		Wallets: map[string]*task.Wallet{"admin": admin},
		Markets: []task.MarketSpec{{Symbol: "PUMP", Creator: "admin", Mint: mint}},
		Tasks:   []*task.Task{trade("buy", "PUMP", "admin", task.OperationBuy, 1_000_000)},
	}

	r := NewRunner(lp, ledger, 1, zaptest.NewLogger(t))
	_, err := r.Run(context.Background(), script)
	require.NoError(t, err)

	report, err := r.Run(context.Background(), script)
	require.NoError(t, err)
	require.NoError(t, report.Results[0].Err)

	m, err := lp.Market(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), m.Sold())
	require.Len(t, report.Markets, 1)
}
