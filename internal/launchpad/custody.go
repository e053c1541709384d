// =============================
// File: internal/launchpad/custody.go
// =============================
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// ReserveAsset identifies the reserve currency in custody.
var ReserveAsset = solana.SolMint

var ErrInsufficientFunds = errors.New("insufficient funds")

// MovementKind is the kind of balance change.
type MovementKind uint8

const (
	MoveTransfer MovementKind = iota + 1
	MoveMint
	MoveBurn
)

func (k MovementKind) String() string {
	switch k {
	case MoveTransfer:
		return "transfer"
	case MoveMint:
		return "mint"
	case MoveBurn:
		return "burn"
	default:
		return "unknown"
	}
}

// Movement is one balance change. Mint ignores From, Burn ignores To.
type Movement struct {
	Kind   MovementKind
	Asset  solana.PublicKey
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

// Reverse returns the movement that undoes m.
func (m Movement) Reverse() Movement {
	switch m.Kind {
	case MoveMint:
		return Movement{Kind: MoveBurn, Asset: m.Asset, From: m.To, Amount: m.Amount}
	case MoveBurn:
		return Movement{Kind: MoveMint, Asset: m.Asset, To: m.From, Amount: m.Amount}
	default:
		return Movement{Kind: MoveTransfer, Asset: m.Asset, From: m.To, To: m.From, Amount: m.Amount}
	}
}

// Reverse returns the movements undoing moves, in reverse order.
func Reverse(moves []Movement) []Movement {
	out := make([]Movement, len(moves))
	for i, m := range moves {
		out[len(moves)-1-i] = m.Reverse()
	}
	return out
}

// Custody moves reserve and tokens between accounts. Apply is atomic:
// either every movement takes effect or none does.
type Custody interface {
	Apply(ctx context.Context, moves []Movement) error
	Balance(asset, owner solana.PublicKey) uint64
}

type balanceKey struct {
	asset solana.PublicKey
	owner solana.PublicKey
}

// Ledger is an in-memory Custody.
type Ledger struct {
	mu       sync.RWMutex
	balances map[balanceKey]uint64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]uint64)}
}

// Fund credits owner out of thin air. Used to seed trader wallets.
func (l *Ledger) Fund(asset, owner solana.PublicKey, amount uint64) error {
	return l.Apply(context.Background(), []Movement{{Kind: MoveMint, Asset: asset, To: owner, Amount: amount}})
}

func (l *Ledger) Balance(asset, owner solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey{asset, owner}]
}

func (l *Ledger) Apply(ctx context.Context, moves []Movement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// считаем на копии затронутых балансов, коммитим только если все прошло
	scratch := make(map[balanceKey]uint64)
	get := func(k balanceKey) uint64 {
		if v, ok := scratch[k]; ok {
			return v
		}
		return l.balances[k]
	}
	debit := func(k balanceKey, amount uint64) error {
		have := get(k)
		if have < amount {
			return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientFunds, k.owner, have, k.asset, amount)
		}
		scratch[k] = have - amount
		return nil
	}
	credit := func(k balanceKey, amount uint64) error {
		sum := uint128.From64(get(k)).Add64(amount)
		if sum.Hi != 0 {
			return fmt.Errorf("balance of %s in %s overflows", k.owner, k.asset)
		}
		scratch[k] = sum.Lo
		return nil
	}

	for i, m := range moves {
		if m.Amount == 0 {
			continue
		}
		var err error
		switch m.Kind {
		case MoveTransfer:
			if err = debit(balanceKey{m.Asset, m.From}, m.Amount); err == nil {
				err = credit(balanceKey{m.Asset, m.To}, m.Amount)
			}
		case MoveMint:
			err = credit(balanceKey{m.Asset, m.To}, m.Amount)
		case MoveBurn:
			err = debit(balanceKey{m.Asset, m.From}, m.Amount)
		default:
			err = fmt.Errorf("unknown movement kind %d", m.Kind)
		}
		if err != nil {
			return fmt.Errorf("movement %d (%s): %w", i, m.Kind, err)
		}
	}

	for k, v := range scratch {
		if v == 0 {
			delete(l.balances, k)
			continue
		}
		l.balances[k] = v
	}
	return nil
}
