// internal/logger/journal.go
package logger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/events"
)

var journalHeader = []string{
	"timestamp", "trade_id", "mint", "trader", "side", "mode",
	"token_amount", "gross_reserve", "fee", "remaining_supply", "accumulated_reserve",
}

// TradeRecord is one row of the trade journal.
type TradeRecord struct {
	Time               time.Time
	TradeID            string
	Mint               string
	Trader             string
	Side               string
	Mode               string
	TokenAmount        uint64
	GrossReserve       uint64
	Fee                uint64
	RemainingSupply    uint64
	AccumulatedReserve uint64
}

func (r TradeRecord) row() []string {
	return []string{
		r.Time.UTC().Format(time.RFC3339Nano),
		r.TradeID,
		r.Mint,
		r.Trader,
		r.Side,
		r.Mode,
		strconv.FormatUint(r.TokenAmount, 10),
		strconv.FormatUint(r.GrossReserve, 10),
		strconv.FormatUint(r.Fee, 10),
		strconv.FormatUint(r.RemainingSupply, 10),
		strconv.FormatUint(r.AccumulatedReserve, 10),
	}
}

// Journal appends committed trades to a CSV file. Safe for concurrent use;
// rows are buffered and flushed periodically and on Close.
type Journal struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *zap.Logger
	filePath string

	records uint64
	flushes uint64
}

// OpenJournal opens (or creates) filePath in append mode. The header is
// written only to an empty file.
func OpenJournal(filePath string, flushInterval time.Duration, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	j := &Journal{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("journal"),
		filePath: filePath,
	}

	if stat.Size() == 0 {
		if err := j.writer.Write(journalHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	j.wg.Add(1)
	go j.periodicFlush()
	return j, nil
}

// Append buffers one trade row.
func (j *Journal) Append(r TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Write(r.row()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	j.records++
	return nil
}

// Handle journals TradeExecuted events; other events are ignored.
func (j *Journal) Handle(_ context.Context, e events.Event) error {
	ev, ok := e.(events.TradeExecutedEvent)
	if !ok {
		return nil
	}
	return j.Append(TradeRecord{
		Time:               ev.Timestamp(),
		TradeID:            ev.TradeID,
		Mint:               ev.Mint.String(),
		Trader:             ev.Trader.String(),
		Side:               ev.Side,
		Mode:               ev.Mode,
		TokenAmount:        ev.TokenAmount,
		GrossReserve:       ev.GrossReserve,
		Fee:                ev.Fee,
		RemainingSupply:    ev.RemainingSupply,
		AccumulatedReserve: ev.AccumulatedReserve,
	})
}

// Flush writes buffered rows and syncs the file.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	j.flushes++
	return nil
}

func (j *Journal) periodicFlush() {
	defer j.wg.Done()
	for {
		select {
		case <-j.ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.filePath),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	close(j.done)
	j.ticker.Stop()
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.flushLocked(); err != nil {
		j.file.Close()
		return err
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.logger.Info("Trade journal closed",
		zap.String("file", j.filePath),
		zap.Uint64("records", j.records),
		zap.Uint64("flushes", j.flushes))
	return nil
}

// Stats returns rows written and flushes performed.
func (j *Journal) Stats() (records, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records, j.flushes
}
