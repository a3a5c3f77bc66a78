package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"giftstudio/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolTransactor opens transactions on a pgx pool
type PoolTransactor struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ repositories.Transactor = (*PoolTransactor)(nil)

func NewPoolTransactor(pool *pgxpool.Pool, logger *slog.Logger) *PoolTransactor {
	return &PoolTransactor{pool: pool, logger: logger}
}

// InTx commits when fn returns nil and rolls back otherwise. Inside an
// enclosing transaction it opens a savepoint instead, so a failed inner step
// only undoes its own writes.
func (t *PoolTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if outer, ok := repositories.TxFrom(ctx); ok {
		tx, err = outer.Begin(ctx)
	} else {
		tx, err = t.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		// after Commit this is ErrTxClosed
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			t.logger.Warn("rollback failed", "error", err)
		}
	}()

	if err := fn(repositories.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
