package trades

import (
	"context"
	"time"

	"pf-challenge/internal/model"
	"pf-challenge/internal/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the append-only trade ledger. Trades, not positions, are the
// canonical fill history; positions are a derived current-state view.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, t model.Trade) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO trades (account_id, position_id, symbol, side, price, quantity, leverage, is_close, realized_pnl, executed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, t.AccountID, t.PositionID, t.Symbol, string(t.Side), t.Price, t.Quantity, t.Leverage, t.IsClose, t.RealizedPnL, time.Now().UTC()).Scan(&id)
	return id, err
}

func (s *Store) ListRecent(ctx context.Context, accountID string, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, position_id, symbol, side, price, quantity, leverage, is_close, realized_pnl, executed_at
		FROM trades
		WHERE account_id = $1
		ORDER BY executed_at DESC, id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Trade, 0, limit)
	for rows.Next() {
		var t model.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.PositionID, &t.Symbol, &side, &t.Price, &t.Quantity, &t.Leverage, &t.IsClose, &t.RealizedPnL, &t.ExecutedAt); err != nil {
			return nil, err
		}
		t.Side = types.PositionSide(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TradingDayCount returns the number of distinct UTC calendar dates carrying
// at least one closing trade. Opening legs never count toward trading days.
func (s *Store) TradingDayCount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT (executed_at AT TIME ZONE 'UTC')::date)
		FROM trades
		WHERE account_id = $1 AND is_close = TRUE
	`, accountID).Scan(&n)
	return n, err
}

// RealizedTotals aggregates the closing legs: total realized PNL, trade count
// and winning-trade count. Reconciliation rebuilds counters from these.
func (s *Store) RealizedTotals(ctx context.Context, accountID string) (pnl decimal.Decimal, total, winning int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(realized_pnl), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE realized_pnl > 0)
		FROM trades
		WHERE account_id = $1 AND is_close = TRUE
	`, accountID).Scan(&pnl, &total, &winning)
	return pnl, total, winning, err
}
