package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giftring/backend/internal/exchange_service/repository"
)

// PgTxRunner wraps pgxpool in the repository.TxRunner interface.
type PgTxRunner struct {
	pool *pgxpool.Pool
}

func NewPgTxRunner(pool *pgxpool.Pool) *PgTxRunner {
	return &PgTxRunner{pool: pool}
}

// InTx runs fn inside one transaction; a returned error rolls it back.
func (r *PgTxRunner) InTx(ctx context.Context, fn func(q repository.Querier) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
