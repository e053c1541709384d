// =============================
// File: internal/storage/codec.go
// =============================
package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpcurve/internal/market"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

const (
	// 8 discriminator + 4 keys + 2 u64 + (4 + 10) symbol + 2 bumps + 24 reserved
	MarketAccountSize = 8 + 32*4 + 8*2 + 4 + market.SymbolMaxLen + 2 + 24
	// 8 discriminator + 3 keys + u64 + 2 u32
	ConfigAccountSize = 8 + 32*3 + 8 + 4 + 4
)

var (
	MarketDiscriminator = discriminator("Coin")
	ConfigDiscriminator = discriminator("Config")

	ErrBadDiscriminator = errors.New("account discriminator mismatch")
	ErrShortAccount     = errors.New("account data too short")
)

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// EncodeMarket serializes m into a zero-padded record of MarketAccountSize bytes.
func EncodeMarket(m *market.Market) ([]byte, error) {
	if len(m.Symbol) > market.SymbolMaxLen {
		return nil, protocol.ErrInvalidSymbol
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(MarketDiscriminator[:], false); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{m.Config, m.Mint, m.CoinVault, m.ReserveVault} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint64(m.RemainingSupply, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(m.AccumulatedReserve, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteString(m.Symbol); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(m.CoinBump); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(m.ReserveVaultBump); err != nil {
		return nil, err
	}

	out := make([]byte, MarketAccountSize)
	copy(out, buf.Bytes())
	return out, nil
}

// DecodeMarket parses a record produced by EncodeMarket.
func DecodeMarket(data []byte) (*market.Market, error) {
	if len(data) < 8 {
		return nil, ErrShortAccount
	}
	if !bytes.Equal(data[:8], MarketDiscriminator[:]) {
		return nil, ErrBadDiscriminator
	}

	dec := bin.NewBorshDecoder(data[8:])
	m := &market.Market{}

	for _, key := range []*solana.PublicKey{&m.Config, &m.Mint, &m.CoinVault, &m.ReserveVault} {
		if err := readKey(dec, key); err != nil {
			return nil, err
		}
	}

	var err error
	if m.RemainingSupply, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("remaining supply: %w", err)
	}
	if m.AccumulatedReserve, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("accumulated reserve: %w", err)
	}
	if m.Symbol, err = dec.ReadString(); err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	if m.CoinBump, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("coin bump: %w", err)
	}
	if m.ReserveVaultBump, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("reserve vault bump: %w", err)
	}
	return m, nil
}

// EncodeConfig serializes cfg into a ConfigAccountSize record.
func EncodeConfig(cfg *protocol.Config) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(ConfigDiscriminator[:], false); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{cfg.Authority, cfg.FeeRecipient, cfg.MigrationAuthority} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint64(cfg.CreateFee, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(cfg.TakerFeeRate, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(cfg.MakerFeeRate, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeConfig parses a record produced by EncodeConfig.
func DecodeConfig(data []byte) (*protocol.Config, error) {
	if len(data) < ConfigAccountSize {
		return nil, ErrShortAccount
	}
	if !bytes.Equal(data[:8], ConfigDiscriminator[:]) {
		return nil, ErrBadDiscriminator
	}

	dec := bin.NewBorshDecoder(data[8:])
	cfg := &protocol.Config{}
	for _, key := range []*solana.PublicKey{&cfg.Authority, &cfg.FeeRecipient, &cfg.MigrationAuthority} {
		if err := readKey(dec, key); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.CreateFee, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("create fee: %w", err)
	}
	if cfg.TakerFeeRate, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("taker fee rate: %w", err)
	}
	if cfg.MakerFeeRate, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("maker fee rate: %w", err)
	}
	return cfg, nil
}

func readKey(dec *bin.Decoder, key *solana.PublicKey) error {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("public key: %w", err)
	}
	*key = solana.PublicKeyFromBytes(b)
	return nil
}
