// ====================================
// File: cmd/curvesim/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/config"
	"github.com/rovshanmuradov/pumpcurve/internal/events"
	"github.com/rovshanmuradov/pumpcurve/internal/export"
	"github.com/rovshanmuradov/pumpcurve/internal/launchpad"
	"github.com/rovshanmuradov/pumpcurve/internal/logger"
	"github.com/rovshanmuradov/pumpcurve/internal/metrics"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
	"github.com/rovshanmuradov/pumpcurve/internal/report"
	"github.com/rovshanmuradov/pumpcurve/internal/runner"
	"github.com/rovshanmuradov/pumpcurve/internal/storage"
	"github.com/rovshanmuradov/pumpcurve/internal/task"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	scriptPath := flag.String("script", "configs/script.yaml", "path to the trade script")
	quote := flag.Bool("quote", false, "print the bonding curve table and exit")
	steps := flag.Int("steps", 10, "rows in the curve table")
	exportDir := flag.String("export-dir", "", "write run results to this directory")
	exportFormat := flag.String("export-format", "csv", "csv or json")
	exportMarket := flag.String("export-market", "", "export only this market symbol")
	flag.Parse()

	if *quote {
		fmt.Println(report.Curve(*steps))
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exportOpts := export.ExportOptions{
		Format:       export.ExportFormat(*exportFormat),
		MarketFilter: *exportMarket,
		OutputDir:    *exportDir,
	}
	if err := run(ctx, cfg, *scriptPath, exportOpts, log); err != nil {
		log.Error("Simulation failed", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, scriptPath string, exportOpts export.ExportOptions, log *zap.Logger) error {
	log.Info("Starting curve simulator",
		zap.String("script", scriptPath),
		zap.Stringer("program_id", cfg.ProgramKey),
		zap.Int("workers", cfg.Workers))

	var store storage.Store = storage.NewMemoryStore()
	if cfg.StateDir != "" {
		fs, err := storage.NewFileStore(cfg.StateDir, log)
		if err != nil {
			return fmt.Errorf("failed to open state dir: %w", err)
		}
		store = fs
	}

	bus := events.NewBus(log, cfg.EventBuffer)

	var journal *logger.Journal
	if cfg.JournalFile != "" {
		j, err := logger.OpenJournal(cfg.JournalFile, time.Second, log)
		if err != nil {
			return err
		}
		journal = j
		bus.Subscribe(events.TradeExecuted, journal)
	}

	// журнал закрывается только после того, как бас доставил все события
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Shutdown(shutdownCtx); err != nil {
			log.Warn("Event bus shutdown incomplete", zap.Error(err))
		}
		st := bus.Stats()
		log.Info("Event bus stopped",
			zap.Int("pending", st.Pending),
			zap.Uint64("dropped", st.Dropped))

		if journal != nil {
			if err := journal.Close(); err != nil {
				log.Warn("Failed to close journal", zap.Error(err))
			}
			records, _ := journal.Stats()
			log.Info("Journal closed", zap.Uint64("records", records))
		}
	}()

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	ledger := launchpad.NewLedger()
	lp, err := launchpad.New(launchpad.Config{
		Logger:    log,
		Custody:   ledger,
		Store:     store,
		Bus:       bus,
		Metrics:   collector,
		ProgramID: cfg.ProgramKey,
	})
	if err != nil {
		return err
	}

	if err := restore(ctx, lp, ledger, cfg); err != nil {
		return err
	}

	script, err := task.NewManager(log).LoadScript(scriptPath)
	if err != nil {
		return err
	}

	rep, err := runner.NewRunner(lp, ledger, cfg.Workers, log).Run(ctx, script)
	if err != nil {
		return err
	}
	fmt.Println(report.Render(rep))

	if exportOpts.OutputDir != "" {
		if _, err := export.NewTradeExporter(log).ExportReport(rep, exportOpts); err != nil {
			log.Warn("Export failed", zap.Error(err))
		}
	}

	if collector != nil {
		logMetrics(collector, log)
	}
	return nil
}

// restore loads persisted state, or initializes the protocol config from the
// file when there is none. Vault balances are reseeded from the restored
// markets since custody lives in memory.
func restore(ctx context.Context, lp *launchpad.Launchpad, ledger *launchpad.Ledger, cfg *config.Config) error {
	err := lp.Restore(ctx)
	if errors.Is(err, protocol.ErrConfigNotInitialized) {
		return lp.InitializeConfig(ctx, launchpad.InitializeConfigArgs{
			Authority:          cfg.AuthorityKey,
			FeeRecipient:       cfg.FeeRecipientKey,
			MigrationAuthority: cfg.MigrationAuthorityKey,
			CreateFee:          cfg.CreateFee,
			TakerFeeRate:       cfg.TakerFeeRate,
			MakerFeeRate:       cfg.MakerFeeRate,
		})
	}
	if err != nil {
		return err
	}

	for _, m := range lp.Markets() {
		if err := ledger.Fund(m.Mint, m.CoinVault, m.RemainingSupply); err != nil {
			return fmt.Errorf("failed to reseed coin vault of %s: %w", m.Symbol, err)
		}
		if err := ledger.Fund(launchpad.ReserveAsset, m.ReserveVault, m.AccumulatedReserve); err != nil {
			return fmt.Errorf("failed to reseed reserve vault of %s: %w", m.Symbol, err)
		}
	}
	return nil
}

func logMetrics(c *metrics.Collector, log *zap.Logger) {
	families, err := c.Registry().Gather()
	if err != nil {
		log.Warn("Failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		log.Debug("Metric family",
			zap.String("name", mf.GetName()),
			zap.Int("series", len(mf.GetMetric())))
	}
}
