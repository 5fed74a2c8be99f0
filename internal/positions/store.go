package positions

import (
	"context"
	"errors"
	"time"

	"pf-challenge/internal/model"
	"pf-challenge/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNoPosition = errors.New("position not found")

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const positionColumns = `id, account_id, symbol, side, entry_price, quantity, leverage, margin,
	liquidation_price, take_profit, stop_loss, status, exit_price, realized_pnl, close_reason,
	opened_at, closed_at`

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var side, status string
	var reason *string
	err := row.Scan(&p.ID, &p.AccountID, &p.Symbol, &side, &p.EntryPrice, &p.Quantity, &p.Leverage,
		&p.Margin, &p.LiquidationPrice, &p.TakeProfit, &p.StopLoss, &status, &p.ExitPrice,
		&p.RealizedPnL, &reason, &p.OpenedAt, &p.ClosedAt)
	if err != nil {
		return p, err
	}
	p.Side = types.PositionSide(side)
	p.Status = types.PositionStatus(status)
	if reason != nil {
		p.CloseReason = types.CloseReason(*reason)
	}
	return p, nil
}

func (s *PGStore) Insert(ctx context.Context, p model.Position) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO positions (account_id, symbol, side, entry_price, quantity, leverage, margin,
			liquidation_price, take_profit, stop_loss, status, opened_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'open',$11)
		RETURNING id
	`, p.AccountID, p.Symbol, string(p.Side), p.EntryPrice, p.Quantity, p.Leverage, p.Margin,
		p.LiquidationPrice, p.TakeProfit, p.StopLoss, time.Now().UTC()).Scan(&id)
	return id, err
}

func (s *PGStore) GetByID(ctx context.Context, id string) (model.Position, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNoPosition
	}
	return p, err
}

func (s *PGStore) GetOpenBySymbol(ctx context.Context, accountID, symbol string) (model.Position, bool, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE account_id = $1 AND symbol = $2 AND status = 'open'",
		accountID, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	return p, true, nil
}

func (s *PGStore) listOpen(ctx context.Context, query string, args ...any) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) ListOpenByAccount(ctx context.Context, accountID string) ([]model.Position, error) {
	return s.listOpen(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE account_id = $1 AND status = 'open' ORDER BY opened_at ASC",
		accountID)
}

func (s *PGStore) ListAllOpen(ctx context.Context) ([]model.Position, error) {
	return s.listOpen(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE status = 'open' ORDER BY opened_at ASC")
}

// OpenSymbols reports which symbols carry open interest, so monitors only
// pull those from the oracle.
func (s *PGStore) OpenSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT symbol FROM positions WHERE status = 'open'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ClaimClose performs the terminal transition as a single conditional update.
// A false return means another caller already closed the position; the caller
// must abort without side effects.
func (s *PGStore) ClaimClose(ctx context.Context, id string, status types.PositionStatus, exitPrice, pnl decimal.Decimal, reason types.CloseReason) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE positions
		SET status = $2, exit_price = $3, realized_pnl = $4, close_reason = $5, closed_at = $6
		WHERE id = $1 AND status = 'open'
	`, id, string(status), exitPrice, pnl, string(reason), time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
