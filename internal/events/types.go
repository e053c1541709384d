// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Market lifecycle
	MarketCreated   EventType = "market.created"
	MarketExhausted EventType = "market.exhausted"

	// Trades
	TradeExecuted EventType = "trade.executed"
	TradeRejected EventType = "trade.rejected"

	// Protocol configuration
	FeesUpdated EventType = "config.fees_updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// MarketCreatedEvent is emitted after a market is activated and persisted.
type MarketCreatedEvent struct {
	BaseEvent
	Mint         solana.PublicKey
	Market       solana.PublicKey
	Symbol       string
	Name         string
	URI          string
	Creator      solana.PublicKey
	CreateFee    uint64
	CoinVault    solana.PublicKey
	ReserveVault solana.PublicKey
}

// TradeExecutedEvent carries the settlement of one committed trade.
type TradeExecutedEvent struct {
	BaseEvent
	TradeID            string
	Mint               solana.PublicKey
	Trader             solana.PublicKey
	Side               string // "buy" / "sell"
	Mode               string // "exact_in" / "exact_out"
	TokenAmount        uint64
	GrossReserve       uint64
	Fee                uint64
	RemainingSupply    uint64
	AccumulatedReserve uint64
}

// TradeRejectedEvent is emitted when a trade fails validation or settlement.
type TradeRejectedEvent struct {
	BaseEvent
	TradeID string
	Mint    solana.PublicKey
	Trader  solana.PublicKey
	Side    string
	Mode    string
	Code    int // 0 when the failure is not a program error
	Err     error
}

// MarketExhaustedEvent is emitted once, by the trade that closes the curve.
type MarketExhaustedEvent struct {
	BaseEvent
	Mint               solana.PublicKey
	RemainingSupply    uint64
	AccumulatedReserve uint64
}

// FeesUpdatedEvent is emitted after a successful fee update.
type FeesUpdatedEvent struct {
	BaseEvent
	CreateFee    uint64
	TakerFeeRate uint32
	MakerFeeRate uint32
}
