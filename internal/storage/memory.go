// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

// MemoryStore keeps encoded records in maps. Records go through the same
// codec as FileStore so both behave identically.
type MemoryStore struct {
	mu      sync.RWMutex
	markets map[solana.PublicKey][]byte
	config  []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markets: make(map[solana.PublicKey][]byte)}
}

func (s *MemoryStore) SaveMarket(ctx context.Context, m *market.Market) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeMarket(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.markets[m.Mint] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadMarket(ctx context.Context, mint solana.PublicKey) (*market.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.markets[mint]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeMarket(data)
}

func (s *MemoryStore) ListMarkets(ctx context.Context) ([]*market.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*market.Market, 0, len(s.markets))
	for _, data := range s.markets {
		m, err := DecodeMarket(data)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint.String() < out[j].Mint.String() })
	return out, nil
}

func (s *MemoryStore) SaveConfig(ctx context.Context, cfg *protocol.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeConfig(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.config = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadConfig(ctx context.Context) (*protocol.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data := s.config
	s.mu.RUnlock()
	if data == nil {
		return nil, ErrNotFound
	}
	return DecodeConfig(data)
}
