package accounts

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

var ErrNoAccount = errors.New("account not found")

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const accountColumns = `id, trader_id, tier, initial_balance, current_balance, equity, profit_target,
	max_total_drawdown, max_daily_loss, min_trading_days, high_water_mark, total_trades,
	winning_trades, status, created_at, updated_at`

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	var status string
	err := row.Scan(&a.ID, &a.TraderID, &a.Tier, &a.InitialBalance, &a.CurrentBalance, &a.Equity,
		&a.ProfitTarget, &a.MaxTotalDrawdown, &a.MaxDailyLoss, &a.MinTradingDays, &a.HighWaterMark,
		&a.TotalTrades, &a.WinningTrades, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Status = types.AccountStatus(status)
	return a, nil
}

func (s *PGStore) GetByTraderTier(ctx context.Context, traderID, tier string) (model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE trader_id = $1 AND tier = $2", traderID, tier))
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrNoAccount
	}
	return a, err
}

func (s *PGStore) GetByID(ctx context.Context, id string) (model.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrNoAccount
	}
	return a, err
}

func (s *PGStore) Insert(ctx context.Context, a model.Account) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (trader_id, tier, initial_balance, current_balance, equity, profit_target,
			max_total_drawdown, max_daily_loss, min_trading_days, high_water_mark, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, a.TraderID, a.Tier, a.InitialBalance, a.CurrentBalance, a.Equity, a.ProfitTarget,
		a.MaxTotalDrawdown, a.MaxDailyLoss, a.MinTradingDays, a.HighWaterMark, string(a.Status)).Scan(&id)
	return id, err
}

// UpdateRiskConfig self-heals a stored account whose tier parameters drifted
// from the current definition. Balance and history are untouched.
func (s *PGStore) UpdateRiskConfig(ctx context.Context, id string, target, drawdown decimal.Decimal, dailyLoss *decimal.Decimal, minDays int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET profit_target = $2, max_total_drawdown = $3, max_daily_loss = $4,
			min_trading_days = $5, updated_at = NOW()
		WHERE id = $1
	`, id, target, drawdown, dailyLoss, minDays)
	return err
}

func (s *PGStore) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET current_balance = $2, equity = $2, updated_at = NOW()
		WHERE id = $1
	`, id, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoAccount
	}
	return nil
}

// AdjustBalance applies a settlement delta in a single relative update, so
// concurrent settlements on different positions of one account cannot lose
// each other's writes. Both assignments read the pre-update balance.
func (s *PGStore) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		UPDATE accounts
		SET current_balance = GREATEST(0, current_balance + $2),
			equity = GREATEST(0, current_balance + $2),
			updated_at = NOW()
		WHERE id = $1
		RETURNING current_balance
	`, id, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return balance, ErrNoAccount
	}
	return balance, err
}

func (s *PGStore) IncrementTradeCounters(ctx context.Context, id string, winning bool) error {
	win := 0
	if winning {
		win = 1
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET total_trades = total_trades + 1, winning_trades = winning_trades + $2, updated_at = NOW()
		WHERE id = $1
	`, id, win)
	return err
}

func (s *PGStore) SetTradeCounters(ctx context.Context, id string, total, winning int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET total_trades = $2, winning_trades = $3, updated_at = NOW()
		WHERE id = $1
	`, id, total, winning)
	return err
}

// TransitionStatus moves an account out of active. The WHERE clause is the
// concurrency guard: once failed or passed the row never transitions again.
func (s *PGStore) TransitionStatus(ctx context.Context, id string, to types.AccountStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id, string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RaiseHighWaterMark is monotonic; a lower equity never lowers the mark.
func (s *PGStore) RaiseHighWaterMark(ctx context.Context, id string, equity decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET high_water_mark = $2, updated_at = NOW()
		WHERE id = $1 AND high_water_mark < $2
	`, id, equity)
	return err
}

// ArchiveRename tags the account's tier with an archival suffix and marks it
// archived. Positions, orders and trades keep pointing at the old row.
func (s *PGStore) ArchiveRename(ctx context.Context, id, suffix string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET tier = tier || $2, status = 'archived', updated_at = NOW()
		WHERE id = $1
	`, id, suffix)
	return err
}

func ArchiveSuffix(now time.Time) string {
	return "-archived-" + now.UTC().Format("20060102T150405")
}
