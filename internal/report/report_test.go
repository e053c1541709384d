package report

import (
	"fmt"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/launchpad"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
	"github.com/rovshanmuradov/pumpcurve/internal/runner"
	"github.com/rovshanmuradov/pumpcurve/internal/task"
)

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0.000000027959", Price(curve.SpotPrice(curve.TotalSupply)))
	assert.Equal(t, "27.959", ReserveDec(curve.MarketCap(curve.TotalSupply)))
	assert.Equal(t, "0.00%", Percent(curve.Progress(curve.TotalSupply)))
	assert.Equal(t, "50.00%", Percent(curve.Progress(curve.TotalSupply-curve.SellableSupply/2)))
	assert.Equal(t, "100.00%", Percent(curve.Progress(curve.ReservedSupply)))
}

func TestTable_View(t *testing.T) {
	out := NewTable().
		AddColumn("Name", 0, lipgloss.Left).
		AddColumn("Value", 0, lipgloss.Right).
		AddRow("alpha", "1").
		AddRow("b", "12345").
		View()

	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "12345")
	assert.Equal(t, "No columns defined", NewTable().View())
}

func TestRender(t *testing.T) {
	m := market.Market{Symbol: "PUMP", RemainingSupply: curve.ReservedSupply, AccumulatedReserve: 85005359057}
	inert := market.Market{Symbol: "NEW"}

	rep := &runner.Report{
		Results: []runner.Result{
			{
				Task: &task.Task{TaskName: "whale", Market: "PUMP", Operation: task.OperationBuy},
				Trade: launchpad.Trade{
					Mint:  solana.NewWallet().PublicKey(),
					State: market.StateExhausted,
					Settlement: market.Settlement{
						Side: market.SideBuy, Mode: market.ExactOut,
						TokenAmount: curve.SellableSupply, GrossReserve: 85005359057, Fee: 850053590,
					},
				},
			},
			{
				Task: &task.Task{TaskName: "late", Market: "PUMP", Operation: task.OperationSell},
				Err:  fmt.Errorf("wrapped: %w", protocol.ErrAlreadyLaunched),
			},
			{Task: &task.Task{TaskName: "fees", Operation: task.OperationUpdateFees}},
		},
		Markets:  []market.Market{inert, m},
		Executed: 2,
		Rejected: 1,
	}

	out := Render(rep)
	assert.Contains(t, out, "Trades")
	assert.Contains(t, out, "793100000")
	assert.Contains(t, out, "85.855412647")
	assert.Contains(t, out, "AlreadyLaunched")
	assert.Contains(t, out, "exhausted")
	assert.Contains(t, out, "inert")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "2 executed")
	assert.Contains(t, out, "1 rejected")
}

func TestCurve(t *testing.T) {
	out := Curve(4)
	assert.Contains(t, out, "Bonding curve")
	assert.Contains(t, out, "0.00%")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "85.005359057")
}

func TestErrorName(t *testing.T) {
	assert.Equal(t, "MaxPayExceeded", errorName(fmt.Errorf("x: %w", protocol.ErrMaxPayExceeded)))
	assert.Equal(t, "disk full", errorName(fmt.Errorf("failed to persist market: disk full")))
}
