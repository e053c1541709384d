// =============================
// File: internal/report/report.go
// =============================
package report

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
	"github.com/rovshanmuradov/pumpcurve/internal/runner"
	"github.com/rovshanmuradov/pumpcurve/internal/task"
)

var titleStyle = lipgloss.NewStyle().
	Foreground(DefaultPalette().Primary).
	Bold(true).
	MarginTop(1)

// Render builds the full text report of a script run.
func Render(r *runner.Report) string {
	palette := DefaultPalette()
	summary := lipgloss.NewStyle().Foreground(palette.Success).Render(fmt.Sprintf("%d executed", r.Executed))
	if r.Rejected > 0 {
		summary += ", " + lipgloss.NewStyle().Foreground(palette.Warning).Render(fmt.Sprintf("%d rejected", r.Rejected))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Trades"),
		Trades(r.Results),
		titleStyle.Render("Markets"),
		Markets(r.Markets),
		summary,
	)
}

// Trades renders one row per task result.
func Trades(results []runner.Result) string {
	palette := DefaultPalette()
	t := NewTable().
		AddColumn("#", 0, lipgloss.Right).
		AddColumn("Task", 0, lipgloss.Left).
		AddColumn("Market", 0, lipgloss.Left).
		AddColumn("Op", 0, lipgloss.Left).
		AddColumn("Tokens", 0, lipgloss.Right).
		AddColumn("Reserve (SOL)", 0, lipgloss.Right).
		AddColumn("Fee (SOL)", 0, lipgloss.Right).
		AddColumn("Result", 0, lipgloss.Left)

	for i, res := range results {
		if res.Task == nil {
			continue
		}
		id := fmt.Sprint(i + 1)
		op := string(res.Task.Operation)

		if res.Err != nil {
			t.AddStyledRow(palette.Error, id, res.Task.TaskName, res.Task.Market, op, "", "", "", errorName(res.Err))
			continue
		}
		if res.Task.Operation == task.OperationUpdateFees {
			t.AddRow(id, res.Task.TaskName, "", op, "", "", "", "ok")
			continue
		}

		s := res.Trade.Settlement
		color := palette.Buy
		reserve := s.TotalPay()
		if s.Side == market.SideSell {
			color = palette.Sell
			reserve = s.NetReserve()
		}
		t.AddStyledRow(color, id, res.Task.TaskName, res.Task.Market, op,
			task.FormatTokens(s.TokenAmount),
			task.FormatReserve(reserve),
			task.FormatReserve(s.Fee),
			res.Trade.State.String())
	}
	return t.View()
}

// Markets renders the final state of every market.
func Markets(markets []market.Market) string {
	t := NewTable().
		AddColumn("Symbol", 0, lipgloss.Left).
		AddColumn("State", 0, lipgloss.Left).
		AddColumn("Sold", 0, lipgloss.Right).
		AddColumn("Reserve (SOL)", 0, lipgloss.Right).
		AddColumn("Progress", 0, lipgloss.Right).
		AddColumn("Price (SOL)", 0, lipgloss.Right).
		AddColumn("Market cap (SOL)", 0, lipgloss.Right)

	for _, m := range markets {
		if m.State() == market.StateInert {
			t.AddRow(m.Symbol, m.State().String())
			continue
		}
		t.AddRow(m.Symbol, m.State().String(),
			task.FormatTokens(m.Sold()),
			task.FormatReserve(m.AccumulatedReserve),
			Percent(curve.Progress(m.RemainingSupply)),
			Price(curve.SpotPrice(m.RemainingSupply)),
			ReserveDec(curve.MarketCap(m.RemainingSupply)))
	}
	return t.View()
}

// Curve renders the curve at evenly spaced points of the sellable supply.
func Curve(steps int) string {
	if steps <= 0 {
		steps = 10
	}
	t := NewTable().
		AddColumn("Progress", 0, lipgloss.Right).
		AddColumn("Sold", 0, lipgloss.Right).
		AddColumn("Cost from zero (SOL)", 0, lipgloss.Right).
		AddColumn("Price (SOL)", 0, lipgloss.Right).
		AddColumn("Market cap (SOL)", 0, lipgloss.Right)

	for i := 0; i <= steps; i++ {
		sold := curve.SellableSupply / uint64(steps) * uint64(i)
		if i == steps {
			sold = curve.SellableSupply
		}
		remaining := curve.TotalSupply - sold
		t.AddRow(
			Percent(curve.Progress(remaining)),
			task.FormatTokens(sold),
			task.FormatReserve(curve.QuoteBuyGivenTokens(curve.TotalSupply, sold)),
			Price(curve.SpotPrice(remaining)),
			ReserveDec(curve.MarketCap(remaining)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Bonding curve"), t.View())
}

func toDecimal(d sdkmath.LegacyDec) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Price converts a base-unit spot price into SOL per whole token.
func Price(d sdkmath.LegacyDec) string {
	return toDecimal(d).Shift(curve.Decimals - curve.ReserveDecimals).StringFixed(12)
}

// ReserveDec renders a reserve amount in base units as SOL.
func ReserveDec(d sdkmath.LegacyDec) string {
	return toDecimal(d).Shift(-curve.ReserveDecimals).StringFixed(3)
}

// Percent renders a 0..1 ratio.
func Percent(d sdkmath.LegacyDec) string {
	return toDecimal(d).Shift(2).StringFixed(2) + "%"
}

func errorName(err error) string {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr.Name
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}
