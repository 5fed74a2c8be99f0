package risk

import (
	"context"
	"time"

	"pf-challenge/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationStore appends breach audit records. Rows are never mutated.
type ViolationStore struct {
	pool *pgxpool.Pool
}

func NewViolationStore(pool *pgxpool.Pool) *ViolationStore {
	return &ViolationStore{pool: pool}
}

func (s *ViolationStore) Insert(ctx context.Context, v model.Violation) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO violations (account_id, violation_type, description, equity, magnitude, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, v.AccountID, string(v.Type), v.Description, v.Equity, v.Magnitude, time.Now().UTC()).Scan(&id)
	return id, err
}
