package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// querier is the subset of [sql.DB] and [sql.Tx] used by tables.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var savepoints atomic.Uint64

// conn is a table's handle on the engine: either the pool (each operation owns a transaction)
// or a transaction opened by [Store.Tx] (each operation owns a savepoint).
type conn struct {
	db *sql.DB
	tx *sql.Tx
}

// unit runs fn as one all-or-nothing operation.
//
// Outside a transaction it begins and commits its own. Inside one it wraps fn in a
// savepoint so a failed operation leaves earlier work in the enclosing transaction intact.
func (c conn) unit(ctx context.Context, fn func(q querier) error) error {
	if c.tx != nil {
		name := fmt.Sprintf("op_%d", savepoints.Add(1))
		if _, err := c.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return errors.Wrap(err, "failed to open savepoint")
		}
		if err := fn(c.tx); err != nil {
			if _, rbErr := c.tx.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
				return errors.CombineErrors(err, rbErr)
			}
			_, _ = c.tx.ExecContext(ctx, "RELEASE "+name)
			return err
		}
		_, err := c.tx.ExecContext(ctx, "RELEASE "+name)
		return errors.Wrap(err, "failed to release savepoint")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}
