package events

import (
	"sync"

	"github.com/google/uuid"
)

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	TypePositionOpened = "position_opened"
	TypePositionClosed = "position_closed"
	TypeOrderPlaced    = "order_placed"
	TypeOrderFilled    = "order_filled"
	TypeOrderCancelled = "order_cancelled"
	TypeAccountStatus  = "account_status"
)

type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 100)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish never blocks; slow subscribers drop events.
func (b *Bus) Publish(eventType string, data any) {
	evt := Event{ID: uuid.NewString(), Type: eventType, Data: data}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}
