package task

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
)

// Manager loads and parses scripts.
type Manager struct {
	logger *zap.Logger
}

// MarketSpec declares a market to create before the tasks run.
type MarketSpec struct {
	Name    string
	Symbol  string
	URI     string
	Creator string // wallet name
	Mint    solana.PublicKey
}

// Script is a parsed simulation script.
type Script struct {
	Wallets map[string]*Wallet
	Markets []MarketSpec
	Tasks   []*Task
}

// ScriptConfig represents the structure of a script YAML file
type ScriptConfig struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
		Reserve    string `yaml:"reserve"`
	} `yaml:"wallets"`
	Markets []struct {
		Name    string `yaml:"name"`
		Symbol  string `yaml:"symbol"`
		URI     string `yaml:"uri"`
		Creator string `yaml:"creator"`
		Mint    string `yaml:"mint"`
	} `yaml:"markets"`
	Tasks []struct {
		TaskName        string  `yaml:"task_name"`
		Market          string  `yaml:"market"`
		Wallet          string  `yaml:"wallet"`
		Operation       string  `yaml:"operation"`
		Amount          string  `yaml:"amount"`
		SlippagePercent float64 `yaml:"slippage_percent"`
		CreateFee       string  `yaml:"create_fee"`
		TakerFeeRate    uint32  `yaml:"taker_fee_rate"`
		MakerFeeRate    uint32  `yaml:"maker_fee_rate"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("task_manager")}
}

func parseOperation(s string) (OperationType, error) {
	op := OperationType(s)
	switch op {
	case OperationBuy, OperationBuyExactIn, OperationSell, OperationSellExactOut, OperationUpdateFees:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operation: %q", s)
	}
}

func clamp(val, min, max, def float64) float64 {
	if val < min || val > max {
		return def
	}
	return val
}

// LoadScript reads a script from a YAML file.
func (m *Manager) LoadScript(path string) (*Script, error) {
	if filepath.IsAbs(path) {
		m.logger.Debug("Using absolute path for script file", zap.String("path", path))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return m.ParseScript(data)
}

// ParseScript parses script YAML. Wallets and markets must be valid; tasks
// that fail validation are skipped with a warning.
func (m *Manager) ParseScript(data []byte) (*Script, error) {
	var config ScriptConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	script := &Script{Wallets: make(map[string]*Wallet, len(config.Wallets))}
	var err error

	for _, w := range config.Wallets {
		if w.Name == "" {
			return nil, fmt.Errorf("wallet without name")
		}
		if _, dup := script.Wallets[w.Name]; dup {
			return nil, fmt.Errorf("duplicate wallet %q", w.Name)
		}
		var reserve uint64
		if w.Reserve != "" {
			if reserve, err = ParseAmount(w.Reserve, curve.ReserveDecimals); err != nil {
				return nil, fmt.Errorf("wallet %q: %w", w.Name, err)
			}
		}
		wallet, err := NewWallet(w.Name, w.PrivateKey, reserve)
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", w.Name, err)
		}
		script.Wallets[w.Name] = wallet
	}

	symbols := make(map[string]bool, len(config.Markets))
	for _, mk := range config.Markets {
		if !market.CheckSymbol(mk.Symbol) {
			return nil, fmt.Errorf("market %q: invalid symbol", mk.Symbol)
		}
		if symbols[mk.Symbol] {
			return nil, fmt.Errorf("duplicate market %q", mk.Symbol)
		}
		if _, ok := script.Wallets[mk.Creator]; !ok {
			return nil, fmt.Errorf("market %q: unknown creator %q", mk.Symbol, mk.Creator)
		}
		mint := solana.NewWallet().PublicKey()
		if mk.Mint != "" {
			if mint, err = solana.PublicKeyFromBase58(mk.Mint); err != nil {
				return nil, fmt.Errorf("market %q: invalid mint: %w", mk.Symbol, err)
			}
		}
		symbols[mk.Symbol] = true
		script.Markets = append(script.Markets, MarketSpec{
			Name:    mk.Name,
			Symbol:  mk.Symbol,
			URI:     mk.URI,
			Creator: mk.Creator,
			Mint:    mint,
		})
	}

	for i, taskData := range config.Tasks {
		task, err := m.buildTask(i, taskData.TaskName, taskData.Market, taskData.Wallet, taskData.Operation,
			taskData.Amount, taskData.SlippagePercent, taskData.CreateFee, taskData.TakerFeeRate, taskData.MakerFeeRate)
		if err == nil {
			err = task.Validate()
		}
		if err == nil && task.Operation != OperationUpdateFees && !symbols[task.Market] {
			err = fmt.Errorf("unknown market %q", task.Market)
		}
		if err == nil {
			if _, ok := script.Wallets[task.WalletName]; !ok {
				err = fmt.Errorf("unknown wallet %q", task.WalletName)
			}
		}
		if err != nil {
			m.logger.Warn("Skipping invalid task", zap.String("task_name", taskData.TaskName), zap.Error(err))
			continue
		}
		script.Tasks = append(script.Tasks, task)
	}

	if len(script.Tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}

	m.logger.Info("Loaded script",
		zap.Int("wallets", len(script.Wallets)),
		zap.Int("markets", len(script.Markets)),
		zap.Int("tasks", len(script.Tasks)))
	return script, nil
}

func (m *Manager) buildTask(id int, name, marketSymbol, wallet, operation, amount string, slippage float64,
	createFee string, takerRate, makerRate uint32) (*Task, error) {
	op, err := parseOperation(operation)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		TaskName:        name,
		Market:          marketSymbol,
		WalletName:      wallet,
		Operation:       op,
		SlippagePercent: decimal.NewFromFloat(clamp(slippage, 0, 100, 1.0)),
	}

	if op == OperationUpdateFees {
		var fee uint64
		if createFee != "" {
			if fee, err = ParseAmount(createFee, curve.ReserveDecimals); err != nil {
				return nil, err
			}
		}
		task.Fees = &FeeUpdate{CreateFee: fee, TakerFeeRate: takerRate, MakerFeeRate: makerRate}
		return task, nil
	}

	decimals := int32(curve.Decimals)
	if op.AmountIsReserve() {
		decimals = curve.ReserveDecimals
	}
	if task.Amount, err = ParseAmount(amount, decimals); err != nil {
		return nil, err
	}
	return task, nil
}
