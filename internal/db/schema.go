package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	trader_id TEXT NOT NULL,
	tier TEXT NOT NULL,
	initial_balance NUMERIC(20,8) NOT NULL,
	current_balance NUMERIC(20,8) NOT NULL,
	equity NUMERIC(20,8) NOT NULL,
	profit_target NUMERIC(20,8) NOT NULL,
	max_total_drawdown NUMERIC(20,8) NOT NULL,
	max_daily_loss NUMERIC(20,8),
	min_trading_days INT NOT NULL DEFAULT 0,
	high_water_mark NUMERIC(20,8) NOT NULL,
	total_trades INT NOT NULL DEFAULT 0,
	winning_trades INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_trader_tier_idx ON accounts (trader_id, tier);

CREATE TABLE IF NOT EXISTS positions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	account_id UUID NOT NULL REFERENCES accounts(id),
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price NUMERIC(20,8) NOT NULL,
	quantity NUMERIC(20,8) NOT NULL,
	leverage NUMERIC(10,2) NOT NULL,
	margin NUMERIC(20,8) NOT NULL,
	liquidation_price NUMERIC(20,8) NOT NULL,
	take_profit NUMERIC(20,8),
	stop_loss NUMERIC(20,8),
	status TEXT NOT NULL DEFAULT 'open',
	exit_price NUMERIC(20,8),
	realized_pnl NUMERIC(20,8),
	close_reason TEXT,
	opened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	closed_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS positions_one_open_per_symbol_idx
	ON positions (account_id, symbol) WHERE status = 'open';
CREATE INDEX IF NOT EXISTS positions_open_idx ON positions (status) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	account_id UUID NOT NULL REFERENCES accounts(id),
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	order_type TEXT NOT NULL,
	price NUMERIC(20,8) NOT NULL,
	stop_price NUMERIC(20,8),
	notional NUMERIC(20,8) NOT NULL,
	leverage NUMERIC(10,2) NOT NULL,
	take_profit NUMERIC(20,8),
	stop_loss NUMERIC(20,8),
	status TEXT NOT NULL DEFAULT 'open',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS orders_open_idx ON orders (status) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS trades (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	account_id UUID NOT NULL REFERENCES accounts(id),
	position_id UUID NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price NUMERIC(20,8) NOT NULL,
	quantity NUMERIC(20,8) NOT NULL,
	leverage NUMERIC(10,2) NOT NULL,
	is_close BOOLEAN NOT NULL DEFAULT FALSE,
	realized_pnl NUMERIC(20,8),
	executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS trades_account_idx ON trades (account_id, executed_at DESC);
CREATE INDEX IF NOT EXISTS trades_position_idx ON trades (position_id);

CREATE TABLE IF NOT EXISTS violations (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	account_id UUID NOT NULL REFERENCES accounts(id),
	violation_type TEXT NOT NULL,
	description TEXT NOT NULL,
	equity NUMERIC(20,8) NOT NULL,
	magnitude NUMERIC(20,8) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
