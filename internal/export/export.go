package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/runner"
	"github.com/rovshanmuradov/pumpcurve/internal/task"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	MarketFilter string // symbol
	SideFilter   string // buy/sell
	OnlySuccess  bool
	OutputDir    string
}

// Row is one exported task result. Amounts are in base units.
type Row struct {
	Task         string `json:"task"`
	Market       string `json:"market"`
	Wallet       string `json:"wallet"`
	Operation    string `json:"operation"`
	Side         string `json:"side,omitempty"`
	Mode         string `json:"mode,omitempty"`
	TokenAmount  uint64 `json:"token_amount"`
	GrossReserve uint64 `json:"gross_reserve"`
	Fee          uint64 `json:"fee"`
	State        string `json:"state,omitempty"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	ElapsedMicro int64  `json:"elapsed_us"`
}

var csvHeaders = []string{
	"task", "market", "wallet", "operation", "side", "mode",
	"token_amount", "gross_reserve", "fee", "state", "success", "error", "elapsed_us",
}

func (r Row) toCSV() []string {
	return []string{
		r.Task, r.Market, r.Wallet, r.Operation, r.Side, r.Mode,
		strconv.FormatUint(r.TokenAmount, 10),
		strconv.FormatUint(r.GrossReserve, 10),
		strconv.FormatUint(r.Fee, 10),
		r.State,
		strconv.FormatBool(r.Success),
		r.Error,
		strconv.FormatInt(r.ElapsedMicro, 10),
	}
}

// ExportSummary contains summary statistics for exported rows
type ExportSummary struct {
	TotalTasks      int    `json:"total_tasks"`
	SuccessfulTasks int    `json:"successful_tasks"`
	BuyCount        int    `json:"buy_count"`
	SellCount       int    `json:"sell_count"`
	UniqueMarkets   int    `json:"unique_markets"`
	TotalBuyVolume  uint64 `json:"total_buy_volume"`
	TotalSellVolume uint64 `json:"total_sell_volume"`
	TotalFees       uint64 `json:"total_fees"`
	BuyVolumeSOL    string `json:"buy_volume_sol"`
	SellVolumeSOL   string `json:"sell_volume_sol"`
	FeesSOL         string `json:"fees_sol"`
}

// TradeExporter writes run results to disk.
type TradeExporter struct {
	logger *zap.Logger
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
	}
}

// ExportReport writes the filtered results of rep and returns the file path.
func (te *TradeExporter) ExportReport(rep *runner.Report, options ExportOptions) (string, error) {
	rows := te.filterRows(Rows(rep.Results), options)
	if len(rows) == 0 {
		return "", fmt.Errorf("no results match the export criteria")
	}

	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(rows, outputPath)
	case FormatJSON:
		err = te.exportToJSON(rows, rep.Markets, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Results exported",
		zap.String("file", outputPath),
		zap.Int("count", len(rows)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

// Rows flattens task results. Results without a task are skipped.
func Rows(results []runner.Result) []Row {
	rows := make([]Row, 0, len(results))
	for _, res := range results {
		if res.Task == nil {
			continue
		}
		row := Row{
			Task:         res.Task.TaskName,
			Market:       res.Task.Market,
			Wallet:       res.Task.WalletName,
			Operation:    string(res.Task.Operation),
			Success:      res.Err == nil,
			ElapsedMicro: res.Elapsed.Microseconds(),
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		if res.Task.Operation != task.OperationUpdateFees {
			s := res.Trade.Settlement
			if res.Err == nil {
				row.Side = s.Side.String()
				row.Mode = s.Mode.String()
				row.TokenAmount = s.TokenAmount
				row.GrossReserve = s.GrossReserve
				row.Fee = s.Fee
				row.State = res.Trade.State.String()
			} else {
				row.Side = sideOf(res.Task.Operation)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func sideOf(op task.OperationType) string {
	switch op {
	case task.OperationBuy, task.OperationBuyExactIn:
		return market.SideBuy.String()
	case task.OperationSell, task.OperationSellExactOut:
		return market.SideSell.String()
	}
	return ""
}

// filterRows applies filters to the row list
func (te *TradeExporter) filterRows(rows []Row, options ExportOptions) []Row {
	var filtered []Row
	for _, row := range rows {
		if options.MarketFilter != "" && row.Market != options.MarketFilter {
			continue
		}
		if options.SideFilter != "" && row.Side != options.SideFilter {
			continue
		}
		if options.OnlySuccess && !row.Success {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// generateFilename creates a filename based on export options
func (te *TradeExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "results_all"
	if options.SideFilter != "" {
		prefix = "results_" + options.SideFilter
	}
	if options.MarketFilter != "" {
		prefix += "_" + options.MarketFilter
	}
	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func (te *TradeExporter) exportToCSV(rows []Row, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.toCSV()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// MarketRow is the exported final state of a market.
type MarketRow struct {
	Symbol             string `json:"symbol"`
	Mint               string `json:"mint"`
	State              string `json:"state"`
	RemainingSupply    uint64 `json:"remaining_supply"`
	AccumulatedReserve uint64 `json:"accumulated_reserve"`
}

func (te *TradeExporter) exportToJSON(rows []Row, markets []market.Market, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	marketRows := make([]MarketRow, 0, len(markets))
	for _, m := range markets {
		marketRows = append(marketRows, MarketRow{
			Symbol:             m.Symbol,
			Mint:               m.Mint.String(),
			State:              m.State().String(),
			RemainingSupply:    m.RemainingSupply,
			AccumulatedReserve: m.AccumulatedReserve,
		})
	}

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		Count      int           `json:"count"`
		Results    []Row         `json:"results"`
		Markets    []MarketRow   `json:"markets"`
		Summary    ExportSummary `json:"summary"`
	}{
		ExportTime: time.Now(),
		Count:      len(rows),
		Results:    rows,
		Markets:    marketRows,
		Summary:    Summarize(rows),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize calculates summary statistics over rows. Only successful trades
// count toward volume.
func Summarize(rows []Row) ExportSummary {
	summary := ExportSummary{TotalTasks: len(rows)}
	markets := make(map[string]bool)

	for _, row := range rows {
		if row.Market != "" {
			markets[row.Market] = true
		}
		if !row.Success {
			continue
		}
		summary.SuccessfulTasks++
		summary.TotalFees += row.Fee

		switch row.Side {
		case market.SideBuy.String():
			summary.BuyCount++
			summary.TotalBuyVolume += row.GrossReserve
		case market.SideSell.String():
			summary.SellCount++
			summary.TotalSellVolume += row.GrossReserve
		}
	}

	summary.UniqueMarkets = len(markets)
	summary.BuyVolumeSOL = task.FormatReserve(summary.TotalBuyVolume)
	summary.SellVolumeSOL = task.FormatReserve(summary.TotalSellVolume)
	summary.FeesSOL = task.FormatReserve(summary.TotalFees)
	return summary
}
