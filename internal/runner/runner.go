// internal/runner/runner.go
package runner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpcurve/internal/launchpad"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/task"
)

// Funder seeds wallet balances before a script runs.
type Funder interface {
	Fund(asset, owner solana.PublicKey, amount uint64) error
}

// Result is the outcome of one task.
type Result struct {
	Task    *task.Task
	Trade   launchpad.Trade // zero for update_fees
	Err     error
	Elapsed time.Duration
}

// Report is what a script run produced. Results are in script order.
type Report struct {
	Results  []Result
	Markets  []market.Market
	Executed int
	Rejected int
}

type Runner struct {
	logger  *zap.Logger
	lp      *launchpad.Launchpad
	funder  Funder
	workers int
}

func NewRunner(lp *launchpad.Launchpad, funder Funder, workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		logger:  logger.Named("runner"),
		lp:      lp,
		funder:  funder,
		workers: workers,
	}
}

// Run funds the wallets, creates the markets and executes the tasks.
//
// update_fees tasks split the script into phases. Inside a phase each market
// gets its own goroutine and its tasks run in script order; markets run
// concurrently, at most workers at a time. A rejected trade is recorded in its
// Result and does not stop the script.
func (r *Runner) Run(ctx context.Context, script *task.Script) (*Report, error) {
	for _, w := range script.Wallets {
		if w.Reserve == 0 {
			continue
		}
		if err := r.funder.Fund(launchpad.ReserveAsset, w.PublicKey, w.Reserve); err != nil {
			return nil, fmt.Errorf("failed to fund wallet %s: %w", w.Name, err)
		}
	}

	mints := make(map[string]solana.PublicKey, len(script.Markets))
	for _, ms := range script.Markets {
		if existing, err := r.lp.Market(ms.Mint); err == nil {
			// восстановлен из state_dir
			r.logger.Info("Reusing market", zap.String("symbol", existing.Symbol), zap.Stringer("mint", existing.Mint))
			mints[ms.Symbol] = existing.Mint
			continue
		}
		cfg, err := r.lp.Config()
		if err != nil {
			return nil, err
		}
		m, err := r.lp.Create(ctx, script.Wallets[ms.Creator].PublicKey, launchpad.CreateArgs{
			Name:         ms.Name,
			Symbol:       ms.Symbol,
			URI:          ms.URI,
			Mint:         ms.Mint,
			FeeRecipient: cfg.FeeRecipient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create market %s: %w", ms.Symbol, err)
		}
		mints[ms.Symbol] = m.Mint
	}

	report := &Report{Results: make([]Result, len(script.Tasks))}
	r.logger.Info("Starting script",
		zap.Int("markets", len(mints)),
		zap.Int("tasks", len(script.Tasks)),
		zap.Int("workers", r.workers))

	phaseStart := 0
	for i, t := range script.Tasks {
		if t.Operation != task.OperationUpdateFees {
			continue
		}
		if err := r.runPhase(ctx, script, mints, report, phaseStart, i); err != nil {
			return nil, err
		}
		report.Results[i] = r.updateFees(ctx, script, t)
		phaseStart = i + 1
	}
	if err := r.runPhase(ctx, script, mints, report, phaseStart, len(script.Tasks)); err != nil {
		return nil, err
	}

	for _, res := range report.Results {
		if res.Err != nil {
			report.Rejected++
		} else {
			report.Executed++
		}
	}
	report.Markets = r.lp.Markets()
	sort.Slice(report.Markets, func(i, j int) bool {
		return report.Markets[i].Symbol < report.Markets[j].Symbol
	})

	r.logger.Info("Script finished",
		zap.Int("executed", report.Executed),
		zap.Int("rejected", report.Rejected))
	return report, nil
}

// runPhase executes the trade tasks in [from, to).
func (r *Runner) runPhase(ctx context.Context, script *task.Script, mints map[string]solana.PublicKey, report *Report, from, to int) error {
	perMarket := make(map[string][]int)
	var order []string
	for i := from; i < to; i++ {
		symbol := script.Tasks[i].Market
		if _, ok := perMarket[symbol]; !ok {
			order = append(order, symbol)
		}
		perMarket[symbol] = append(perMarket[symbol], i)
	}
	if len(order) == 0 {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, symbol := range order {
		symbol := symbol
		g.Go(func() error {
			for _, i := range perMarket[symbol] {
				if err := gCtx.Err(); err != nil {
					return err
				}
				// каждая горутина пишет только в свои индексы
				report.Results[i] = r.trade(gCtx, script, mints[symbol], script.Tasks[i])
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) trade(ctx context.Context, script *task.Script, mint solana.PublicKey, t *task.Task) Result {
	start := time.Now()
	res := Result{Task: t}

	accounts, err := r.lp.Accounts(mint)
	if err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	side, mode := sideMode(t.Operation)
	req := launchpad.TradeRequest{
		Mint:     mint,
		Trader:   script.Wallets[t.WalletName].PublicKey,
		Accounts: accounts,
		Amount:   t.Amount,
		Limit:    r.limit(mint, side, mode, t),
	}

	switch t.Operation {
	case task.OperationBuy:
		res.Trade, res.Err = r.lp.Buy(ctx, req)
	case task.OperationBuyExactIn:
		res.Trade, res.Err = r.lp.BuyExactIn(ctx, req)
	case task.OperationSell:
		res.Trade, res.Err = r.lp.Sell(ctx, req)
	case task.OperationSellExactOut:
		res.Trade, res.Err = r.lp.SellExactOut(ctx, req)
	default:
		res.Err = fmt.Errorf("unsupported operation: %s", t.Operation)
	}
	res.Elapsed = time.Since(start)
	return res
}

func (r *Runner) updateFees(ctx context.Context, script *task.Script, t *task.Task) Result {
	start := time.Now()
	err := r.lp.UpdateFees(ctx, script.Wallets[t.WalletName].PublicKey,
		t.Fees.CreateFee, t.Fees.TakerFeeRate, t.Fees.MakerFeeRate)
	if err != nil {
		r.logger.Warn("Fee update rejected", zap.String("task_name", t.TaskName), zap.Error(err))
	}
	return Result{Task: t, Err: err, Elapsed: time.Since(start)}
}

// limit turns the task's slippage tolerance into the trade bound, relative to
// a quote of the current state. Without a quote the bound is left open so the
// trade itself reports why it cannot execute.
func (r *Runner) limit(mint solana.PublicKey, side market.Side, mode market.Mode, t *task.Task) uint64 {
	q, err := r.lp.Quote(mint, side, mode, t.Amount)
	if err != nil {
		if mode == market.ExactOut {
			return math.MaxUint64
		}
		return 0
	}

	switch {
	case side == market.SideBuy && mode == market.ExactOut:
		return widen(q.TotalPay(), t.SlippagePercent)
	case side == market.SideBuy && mode == market.ExactIn:
		return narrow(q.TokenAmount, t.SlippagePercent)
	case side == market.SideSell && mode == market.ExactIn:
		return narrow(q.NetReserve(), t.SlippagePercent)
	default:
		return widen(q.TokenAmount, t.SlippagePercent)
	}
}

func sideMode(op task.OperationType) (market.Side, market.Mode) {
	switch op {
	case task.OperationBuy:
		return market.SideBuy, market.ExactOut
	case task.OperationBuyExactIn:
		return market.SideBuy, market.ExactIn
	case task.OperationSell:
		return market.SideSell, market.ExactIn
	default:
		return market.SideSell, market.ExactOut
	}
}

var hundred = decimal.NewFromInt(100)

func widen(v uint64, slippagePercent decimal.Decimal) uint64 {
	d := decimal.NewFromUint64(v).Mul(hundred.Add(slippagePercent)).Div(hundred).Ceil()
	return toUint64(d)
}

func narrow(v uint64, slippagePercent decimal.Decimal) uint64 {
	d := decimal.NewFromUint64(v).Mul(hundred.Sub(slippagePercent)).Div(hundred).Floor()
	return toUint64(d)
}

func toUint64(d decimal.Decimal) uint64 {
	if d.IsNegative() {
		return 0
	}
	n := d.BigInt()
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}
