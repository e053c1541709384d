// =============================================
// File: internal/task/task.go
// =============================================
package task

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpcurve/internal/fee"
)

// OperationType defines the supported operation types
type OperationType string

const (
	OperationBuy          OperationType = "buy"
	OperationBuyExactIn   OperationType = "buy_exact_in"
	OperationSell         OperationType = "sell"
	OperationSellExactOut OperationType = "sell_exact_out"
	OperationUpdateFees   OperationType = "update_fees"
)

// AmountIsReserve reports whether the task amount is in reserve units
// rather than token units.
func (op OperationType) AmountIsReserve() bool {
	return op == OperationBuyExactIn || op == OperationSellExactOut
}

// FeeUpdate is the payload of an update_fees task.
type FeeUpdate struct {
	CreateFee    uint64
	TakerFeeRate uint32
	MakerFeeRate uint32
}

// Task is one step of a script. Amount is in base units of whatever the
// operation fixes: tokens for buy/sell, reserve for buy_exact_in/sell_exact_out.
type Task struct {
	ID              int
	TaskName        string
	Market          string // symbol of a market declared in the script
	WalletName      string
	Operation       OperationType
	Amount          uint64
	SlippagePercent decimal.Decimal
	Fees            *FeeUpdate
}

// Validate checks if the task has valid parameters
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if t.WalletName == "" {
		return fmt.Errorf("wallet name cannot be empty")
	}

	switch t.Operation {
	case OperationBuy, OperationBuyExactIn, OperationSell, OperationSellExactOut:
		if t.Market == "" {
			return fmt.Errorf("market cannot be empty")
		}
		if t.Amount == 0 {
			return fmt.Errorf("amount must be greater than zero")
		}
	case OperationUpdateFees:
		if t.Fees == nil {
			return fmt.Errorf("update_fees needs fee values")
		}
		if !fee.ValidRate(t.Fees.TakerFeeRate) || !fee.ValidRate(t.Fees.MakerFeeRate) {
			return fmt.Errorf("fee rate must not exceed %d", fee.FeeRateBasisPoint)
		}
	default:
		return fmt.Errorf("invalid operation: %s", t.Operation)
	}

	if t.SlippagePercent.IsNegative() || t.SlippagePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("slippage must be between 0 and 100")
	}
	return nil
}
