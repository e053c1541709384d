// =============================
// File: internal/market/market.go
// =============================
package market

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/pumpcurve/internal/curve"
	"github.com/rovshanmuradov/pumpcurve/internal/fee"
	"github.com/rovshanmuradov/pumpcurve/internal/protocol"
)

const (
	SymbolMinLen = 2
	SymbolMaxLen = 10
)

// State is the lifecycle position of a market.
type State uint8

const (
	// StateInert: created but the supply was never minted.
	StateInert State = iota
	StateOpen
	// StateExhausted is terminal. Remaining supply is at or below the reserved tail.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateInert:
		return "inert"
	case StateOpen:
		return "open"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Market is the curve state of one token. It is not safe for concurrent use;
// callers serialize trades per market.
type Market struct {
	Config       solana.PublicKey
	Mint         solana.PublicKey
	CoinVault    solana.PublicKey
	ReserveVault solana.PublicKey

	// RemainingSupply includes the reserved tail.
	RemainingSupply uint64
	// AccumulatedReserve is the gross reserve escrowed by the curve.
	AccumulatedReserve uint64

	Symbol           string
	CoinBump         uint8
	ReserveVaultBump uint8
}

// CheckSymbol reports whether symbol has an acceptable byte length.
func CheckSymbol(symbol string) bool {
	return len(symbol) >= SymbolMinLen && len(symbol) <= SymbolMaxLen
}

// Initialize fills the identity fields of a fresh, inert market.
func (m *Market) Initialize(config, mint, coinVault solana.PublicKey, symbol string, coinBump uint8) {
	m.Config = config
	m.Mint = mint
	m.CoinVault = coinVault
	m.Symbol = symbol
	m.CoinBump = coinBump
}

// SetReserveVault records the reserve vault once its address has been verified.
func (m *Market) SetReserveVault(vault solana.PublicKey, bump uint8) {
	m.ReserveVault = vault
	m.ReserveVaultBump = bump
}

// Activate puts the full supply on the curve. It succeeds once per market.
func (m *Market) Activate() (MintEffect, error) {
	if m.RemainingSupply != 0 || m.AccumulatedReserve != 0 {
		return MintEffect{}, protocol.ErrAlreadyActivated
	}
	m.RemainingSupply = curve.TotalSupply
	return MintEffect{Mint: m.Mint, Vault: m.CoinVault, Amount: curve.TotalSupply}, nil
}

func (m *Market) State() State {
	switch {
	case m.RemainingSupply == 0:
		return StateInert
	case m.RemainingSupply <= curve.ReservedSupply:
		return StateExhausted
	default:
		return StateOpen
	}
}

// AvailableSupply is what can still be bought.
func (m *Market) AvailableSupply() uint64 {
	if m.RemainingSupply <= curve.ReservedSupply {
		return 0
	}
	return m.RemainingSupply - curve.ReservedSupply
}

// Sold is the amount currently held by traders.
func (m *Market) Sold() uint64 {
	if m.RemainingSupply == 0 {
		return 0
	}
	return curve.TotalSupply - m.RemainingSupply
}

func (m *Market) checkOpen() error {
	switch m.State() {
	case StateInert:
		return protocol.ErrNotActivated
	case StateExhausted:
		return protocol.ErrAlreadyLaunched
	}
	return nil
}

// BuyExactOut buys exactly tokenAmount. The maker fee comes on top of the
// curve cost and the total must not exceed maxPay.
func (m *Market) BuyExactOut(cfg protocol.Config, tokenAmount, maxPay uint64) (Settlement, error) {
	if err := m.checkOpen(); err != nil {
		return Settlement{}, err
	}
	if tokenAmount > m.AvailableSupply() {
		return Settlement{}, protocol.ErrInsufficientSupply
	}

	cost := curve.QuoteBuyGivenTokens(m.RemainingSupply, tokenAmount)
	makerFee := fee.BuyFee(cost, cfg.MakerFeeRate)
	total := uint128.From64(cost).Add64(makerFee)
	if total.Cmp64(maxPay) > 0 {
		return Settlement{}, protocol.ErrMaxPayExceeded
	}

	acc, err := add(m.AccumulatedReserve, cost)
	if err != nil {
		return Settlement{}, err
	}
	m.RemainingSupply -= tokenAmount
	m.AccumulatedReserve = acc

	return Settlement{
		Side:         SideBuy,
		Mode:         ExactOut,
		TokenAmount:  tokenAmount,
		GrossReserve: cost,
		Fee:          makerFee,
	}, nil
}

// BuyExactIn spends payAmount on the curve. The maker fee is charged on top,
// so the trader pays payAmount + fee. The full payAmount is taken even when
// the output is clamped to the available supply.
func (m *Market) BuyExactIn(cfg protocol.Config, payAmount, minReceive uint64) (Settlement, error) {
	if err := m.checkOpen(); err != nil {
		return Settlement{}, err
	}

	makerFee := fee.BuyFee(payAmount, cfg.MakerFeeRate)
	tokens := curve.QuoteTokensGivenReserveBuy(m.RemainingSupply, payAmount)
	if tokens < minReceive {
		return Settlement{}, protocol.ErrInsufficientReceive
	}

	if _, err := add(payAmount, makerFee); err != nil {
		return Settlement{}, err
	}
	acc, err := add(m.AccumulatedReserve, payAmount)
	if err != nil {
		return Settlement{}, err
	}
	m.RemainingSupply -= tokens
	m.AccumulatedReserve = acc

	return Settlement{
		Side:         SideBuy,
		Mode:         ExactIn,
		TokenAmount:  tokens,
		GrossReserve: payAmount,
		Fee:          makerFee,
	}, nil
}

// SellExactIn returns tokenAmount to the curve. The taker fee is withheld from
// the refund and the net must reach minReceive.
func (m *Market) SellExactIn(cfg protocol.Config, tokenAmount, minReceive uint64) (Settlement, error) {
	if err := m.checkOpen(); err != nil {
		return Settlement{}, err
	}
	if tokenAmount > m.Sold() {
		return Settlement{}, protocol.ErrInsufficientSupply
	}

	gross := curve.QuoteSellGivenTokens(m.RemainingSupply, tokenAmount)
	takerFee := fee.SellFee(gross, cfg.TakerFeeRate)
	if gross-takerFee < minReceive {
		return Settlement{}, protocol.ErrInsufficientReceive
	}

	acc, err := sub(m.AccumulatedReserve, gross)
	if err != nil {
		return Settlement{}, err
	}
	m.RemainingSupply += tokenAmount
	m.AccumulatedReserve = acc

	return Settlement{
		Side:         SideSell,
		Mode:         ExactIn,
		TokenAmount:  tokenAmount,
		GrossReserve: gross,
		Fee:          takerFee,
	}, nil
}

// SellExactOut sells whatever amount of tokens releases receive net of the
// taker fee. The tokens needed must not exceed maxPay.
func (m *Market) SellExactOut(cfg protocol.Config, receive, maxPay uint64) (Settlement, error) {
	if err := m.checkOpen(); err != nil {
		return Settlement{}, err
	}
	if receive == 0 {
		return Settlement{}, protocol.ErrInvalidReceive
	}

	gross, ok := fee.GrossForNet(receive, cfg.TakerFeeRate)
	if !ok || gross > m.AccumulatedReserve {
		// curve does not escrow enough
		return Settlement{}, protocol.ErrInsufficientReceive
	}
	takerFee := gross - receive

	tokens, err := curve.QuoteTokensGivenReserveSell(m.RemainingSupply, gross)
	if err != nil {
		return Settlement{}, err
	}
	if tokens > maxPay {
		return Settlement{}, protocol.ErrMaxPayExceeded
	}

	remaining, err := add(m.RemainingSupply, tokens)
	if err != nil {
		return Settlement{}, err
	}
	m.RemainingSupply = remaining
	m.AccumulatedReserve -= gross

	return Settlement{
		Side:         SideSell,
		Mode:         ExactOut,
		TokenAmount:  tokens,
		GrossReserve: gross,
		Fee:          takerFee,
	}, nil
}

func add(a, b uint64) (uint64, error) {
	s := uint128.From64(a).Add64(b)
	if s.Hi != 0 {
		return 0, protocol.ErrArithmeticOverflow
	}
	return s.Lo, nil
}

func sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, protocol.ErrArithmeticOverflow
	}
	return a - b, nil
}
