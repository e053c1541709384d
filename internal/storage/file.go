// =============================
// File: internal/storage/file.go
// =============================
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

const (
	marketExt      = ".market.bin"
	configFileName = "config.bin"
)

// FileStore keeps one fixed-layout file per record under dir.
// Writes go to a temp file first and are renamed into place.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: logger.Named("file_store")}, nil
}

func (s *FileStore) marketPath(mint solana.PublicKey) string {
	return filepath.Join(s.dir, mint.String()+marketExt)
}

func (s *FileStore) SaveMarket(ctx context.Context, m *market.Market) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeMarket(m)
	if err != nil {
		return err
	}
	return s.write(s.marketPath(m.Mint), data)
}

func (s *FileStore) LoadMarket(ctx context.Context, mint solana.PublicKey) (*market.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.read(s.marketPath(mint))
	if err != nil {
		return nil, err
	}
	return DecodeMarket(data)
}

func (s *FileStore) ListMarkets(ctx context.Context) ([]*market.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dir: %w", err)
	}

	var out []*market.Market
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), marketExt) {
			continue
		}
		data, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		m, err := DecodeMarket(data)
		if err != nil {
			s.logger.Warn("Skipping unreadable market record",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint.String() < out[j].Mint.String() })
	return out, nil
}

func (s *FileStore) SaveConfig(ctx context.Context, cfg *protocol.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeConfig(cfg)
	if err != nil {
		return err
	}
	return s.write(filepath.Join(s.dir, configFileName), data)
}

func (s *FileStore) LoadConfig(ctx context.Context) (*protocol.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.read(filepath.Join(s.dir, configFileName))
	if err != nil {
		return nil, err
	}
	return DecodeConfig(data)
}

func (s *FileStore) write(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	s.logger.Debug("Record written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
