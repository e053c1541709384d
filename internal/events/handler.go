// internal/events/handler.go
package events

import (
	"context"

	"github.com/google/uuid"
)

// Handler processes events of a specific type. Handlers must not block.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	ID() uuid.UUID
	Unsubscribe()
}

type subscription struct {
	id  uuid.UUID
	bus *Bus
	typ EventType
}

func (s *subscription) ID() uuid.UUID {
	return s.id
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}
