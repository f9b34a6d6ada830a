package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	schedulingerrors "clinicslots/internal/scheduling/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// withTx runs fn in a read-committed transaction whose row-lock waits are
// capped by lockTimeout. A context that already carries a transaction runs fn
// inline.
func withTx(ctx context.Context, pool *pgxpool.Pool, lockTimeout time.Duration, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translate(fmt.Errorf("begin tx: %w", err))
	}

	timeout := fmt.Sprintf("%dms", lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		_ = tx.Rollback(ctx)
		return translate(fmt.Errorf("set lock_timeout: %w", err))
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(context.Background())
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// translate maps lock and serialization failures to the retryable sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", schedulingerrors.ErrLockTimeout, err)
		}
		return err
	}

	switch pgErr.Code {
	case "55P03":
		return fmt.Errorf("%w: %v", schedulingerrors.ErrLockTimeout, err)
	case "40P01", "40001", "23505":
		return fmt.Errorf("%w: %v", schedulingerrors.ErrStaleRevision, err)
	}
	return err
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
