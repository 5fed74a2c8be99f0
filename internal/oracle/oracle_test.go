package oracle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	s := NewStore()
	s.Set("btcusdt", Quote{Price: decimal.NewFromInt(50000)})

	q, ok := s.Get("BTCUSDT")
	require.True(t, ok, "symbols are case-insensitive")
	assert.True(t, q.Price.Equal(decimal.NewFromInt(50000)))
	assert.False(t, q.UpdatedAt.IsZero(), "timestamp filled on ingest")

	_, ok = s.Get("ETHUSDT")
	assert.False(t, ok)
}

func TestSetRejectsBadQuote(t *testing.T) {
	s := NewStore()
	s.Set("", Quote{Price: decimal.NewFromInt(1)})
	s.Set("BTCUSDT", Quote{Price: decimal.Zero})
	s.Set("BTCUSDT", Quote{Price: decimal.NewFromInt(-5)})

	_, ok := s.Get("BTCUSDT")
	assert.False(t, ok)
}

func TestSnapshotFiltered(t *testing.T) {
	s := NewStore()
	s.Set("BTCUSDT", Quote{Price: decimal.NewFromInt(50000)})
	s.Set("ETHUSDT", Quote{Price: decimal.NewFromInt(3000)})

	got := s.Snapshot([]string{"btcusdt", "SOLUSDT"})
	require.Len(t, got, 1)
	_, ok := got["BTCUSDT"]
	assert.True(t, ok)

	all := s.Snapshot(nil)
	assert.Len(t, all, 2)

	none := s.Snapshot([]string{})
	assert.Empty(t, none, "empty filter selects nothing")
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Set("BTCUSDT", Quote{Price: decimal.NewFromInt(50000)})

	snap := s.Snapshot(nil)
	snap["BTCUSDT"] = Quote{Price: decimal.NewFromInt(1)}

	q, _ := s.Get("BTCUSDT")
	assert.True(t, q.Price.Equal(decimal.NewFromInt(50000)))
}
