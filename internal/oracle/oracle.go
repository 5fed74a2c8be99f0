package oracle

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one symbol's snapshot as supplied by the external price feed.
type Quote struct {
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	High24h   decimal.Decimal `json:"high_24h"`
	Low24h    decimal.Decimal `json:"low_24h"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store holds the latest quote per symbol. The engine treats it as read-only
// and possibly stale; a missing symbol is a valid state, not an error.
type Store struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewStore() *Store {
	return &Store{quotes: make(map[string]Quote)}
}

func (s *Store) Set(symbol string, q Quote) {
	symbol = normalize(symbol)
	if symbol == "" || !q.Price.GreaterThan(decimal.Zero) {
		return
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.quotes[symbol] = q
	s.mu.Unlock()
}

func (s *Store) Get(symbol string) (Quote, bool) {
	s.mu.RLock()
	q, ok := s.quotes[normalize(symbol)]
	s.mu.RUnlock()
	return q, ok
}

// Snapshot copies the quotes for the requested symbols. Passing nil returns
// everything. Monitors use the filtered form so only symbols with open
// interest are evaluated per tick.
func (s *Store) Snapshot(symbols []string) map[string]Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Quote, len(s.quotes))
	if symbols == nil {
		for sym, q := range s.quotes {
			out[sym] = q
		}
		return out
	}
	for _, sym := range symbols {
		if q, ok := s.quotes[normalize(sym)]; ok {
			out[normalize(sym)] = q
		}
	}
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
