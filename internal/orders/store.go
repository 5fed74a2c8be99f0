package orders

import (
	"context"
	"errors"
	"time"

	"pf-challenge/internal/model"
	"pf-challenge/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoOrder = errors.New("order not found")

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const orderColumns = `id, account_id, symbol, side, order_type, price, stop_price, notional,
	leverage, take_profit, stop_loss, status, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var side, typ, status string
	err := row.Scan(&o.ID, &o.AccountID, &o.Symbol, &side, &typ, &o.Price, &o.StopPrice,
		&o.Notional, &o.Leverage, &o.TakeProfit, &o.StopLoss, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.Side = types.OrderSide(side)
	o.Type = types.OrderType(typ)
	o.Status = types.OrderStatus(status)
	return o, nil
}

func (s *PGStore) Insert(ctx context.Context, o model.Order) (string, error) {
	var id string
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO orders (account_id, symbol, side, order_type, price, stop_price, notional,
			leverage, take_profit, stop_loss, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'open',$11,$11)
		RETURNING id
	`, o.AccountID, o.Symbol, string(o.Side), string(o.Type), o.Price, o.StopPrice, o.Notional,
		o.Leverage, o.TakeProfit, o.StopLoss, now).Scan(&id)
	return id, err
}

func (s *PGStore) GetByID(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return o, ErrNoOrder
	}
	return o, err
}

func (s *PGStore) listOpen(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PGStore) ListOpenByAccount(ctx context.Context, accountID string) ([]model.Order, error) {
	return s.listOpen(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE account_id = $1 AND status = 'open' ORDER BY created_at ASC",
		accountID)
}

func (s *PGStore) ListAllOpen(ctx context.Context) ([]model.Order, error) {
	return s.listOpen(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = 'open' ORDER BY created_at ASC")
}

// ClaimFill is the atomic open→filled transition; exactly one of any number
// of concurrent claimers gets a true back.
func (s *PGStore) ClaimFill(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = 'filled', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevertFill is the compensating action when execution after a successful
// claim fails: the order goes back to open and stays eligible for retry.
func (s *PGStore) RevertFill(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = 'open', updated_at = NOW()
		WHERE id = $1 AND status = 'filled'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) ClaimCancel(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
