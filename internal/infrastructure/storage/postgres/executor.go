package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"sipdah/internal/core/ambient"
	"sipdah/pkg/logger"
)

// Executor runs repository statements against the ambient transaction when
// a unit of work is active and against the pool otherwise. Repository
// signatures stay the same in both cases.
type Executor struct {
	conn Conn
}

// NewExecutor creates an Executor over conn.
func NewExecutor(conn Conn) *Executor {
	return &Executor{conn: conn}
}

// Builder returns a squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// with hands fn the querier for ctx. The ambient transaction stays
// published whether fn succeeds or fails.
func (e *Executor) with(ctx context.Context, op string, fn func(q Querier) error) error {
	found, err := ambient.Borrow(ctx, txSlot, func(t pgx.Tx) error {
		return fn(t)
	})
	if !found {
		logger.Debug(ctx, "statement outside unit of work", "op", op)
		err = fn(e.conn)
	}
	return mapError(op, err)
}

// Exec runs a statement and returns the number of affected rows.
func (e *Executor) Exec(ctx context.Context, op, sql string, args ...any) (int64, error) {
	var affected int64
	err := e.with(ctx, op, func(q Querier) error {
		tag, err := q.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// Get scans exactly one row into dst. A missing row is reported as pgx.ErrNoRows.
func (e *Executor) Get(ctx context.Context, op string, dst any, sql string, args ...any) error {
	return e.with(ctx, op, func(q Querier) error {
		return pgxscan.Get(ctx, q, dst, sql, args...)
	})
}

// Select scans all rows into the slice pointed to by dst.
func (e *Executor) Select(ctx context.Context, op string, dst any, sql string, args ...any) error {
	return e.with(ctx, op, func(q Querier) error {
		return pgxscan.Select(ctx, q, dst, sql, args...)
	})
}

// Exists wraps sql in SELECT EXISTS(...) and returns the result.
func (e *Executor) Exists(ctx context.Context, op, sql string, args ...any) (bool, error) {
	var exists bool
	err := e.with(ctx, op, func(q Querier) error {
		return q.QueryRow(ctx, "SELECT EXISTS("+sql+")", args...).Scan(&exists)
	})
	return exists, err
}

// ExecBuilder renders b and executes it.
func (e *Executor) ExecBuilder(ctx context.Context, op string, b squirrel.Sqlizer) (int64, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, mapError(op, err)
	}
	return e.Exec(ctx, op, sql, args...)
}

// GetBuilder renders b and scans one row into dst.
func (e *Executor) GetBuilder(ctx context.Context, op string, dst any, b squirrel.Sqlizer) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return mapError(op, err)
	}
	return e.Get(ctx, op, dst, sql, args...)
}

// SelectBuilder renders b and scans all rows into dst.
func (e *Executor) SelectBuilder(ctx context.Context, op string, dst any, b squirrel.Sqlizer) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return mapError(op, err)
	}
	return e.Select(ctx, op, dst, sql, args...)
}

// ExistsBuilder renders b and checks whether it returns any row.
func (e *Executor) ExistsBuilder(ctx context.Context, op string, b squirrel.Sqlizer) (bool, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return false, mapError(op, err)
	}
	return e.Exists(ctx, op, sql, args...)
}

// Ping checks database reachability.
func (e *Executor) Ping(ctx context.Context) error {
	return e.conn.Ping(ctx)
}
