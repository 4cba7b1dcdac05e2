package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sipdah/internal/core/ambient"
	"sipdah/internal/core/apperror"
	"sipdah/internal/core/tx"
	"sipdah/pkg/logger"
)

var tracer = otel.Tracer("sipdah/tx")

// Compile-time check that TxManager implements tx.ReadOnlyManager interface.
var _ tx.ReadOnlyManager = (*TxManager)(nil)

// txSlot holds the transaction of the unit of work running in a scope.
var txSlot = ambient.NewSlot[pgx.Tx]("postgres.tx")

// Unit of work outcomes reported to the Observer.
const (
	OutcomeCommit        = "commit"
	OutcomeRollback      = "rollback"
	OutcomeBeginError    = "begin_error"
	OutcomeCommitError   = "commit_error"
	OutcomeRollbackError = "rollback_error"
	OutcomeNested        = "nested"
	OutcomeCancelled     = "cancelled"
	OutcomePanic         = "panic"
)

const defaultRollbackTimeout = 5 * time.Second

// Observer receives the outcome of every unit of work.
type Observer interface {
	ObserveUnitOfWork(outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveUnitOfWork(string, time.Duration) {}

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (0 disables it)
	StatementTimeout time.Duration
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// TxManager runs units of work against a pool. The open transaction is
// published into a forked ambient scope for the duration of the operation
// so that the Executor picks it up without extra parameters.
type TxManager struct {
	conn            Conn
	acquireTimeout  time.Duration
	rollbackTimeout time.Duration
	observer        Observer
	defaults        TxOptions
}

// TxManagerOption customizes a TxManager.
type TxManagerOption func(*TxManager)

// WithAcquireTimeout bounds how long Begin waits for a pooled connection.
func WithAcquireTimeout(d time.Duration) TxManagerOption {
	return func(m *TxManager) { m.acquireTimeout = d }
}

// WithRollbackTimeout bounds rollbacks, which run detached from request cancellation.
func WithRollbackTimeout(d time.Duration) TxManagerOption {
	return func(m *TxManager) { m.rollbackTimeout = d }
}

// WithStatementTimeout sets the statement timeout applied by RunInTransaction
// and ReadOnly. Zero disables it.
func WithStatementTimeout(d time.Duration) TxManagerOption {
	return func(m *TxManager) { m.defaults.StatementTimeout = d }
}

// WithObserver installs an outcome observer.
func WithObserver(o Observer) TxManagerOption {
	return func(m *TxManager) {
		if o != nil {
			m.observer = o
		}
	}
}

// NewTxManager creates a new transaction manager.
func NewTxManager(conn Conn, opts ...TxManagerOption) *TxManager {
	m := &TxManager{
		conn:            conn,
		rollbackTimeout: defaultRollbackTimeout,
		observer:        noopObserver{},
		defaults:        DefaultTxOptions(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunInTransaction executes fn within a transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, m.defaults, fn)
}

// ReadOnly executes fn in a read-only transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := m.defaults
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}

// InTransaction reports whether ctx carries an active unit of work.
func InTransaction(ctx context.Context) bool {
	return ambient.Has(ctx, txSlot)
}

// RunInTransactionWithOptions executes fn with custom transaction options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "unit_of_work",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
			attribute.String("tx.access_mode", string(opts.AccessMode)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()

	if InTransaction(ctx) {
		m.observer.ObserveUnitOfWork(OutcomeNested, time.Since(start))
		logger.Warn(ctx, "nested unit of work rejected")
		return apperror.NewInternal(tx.ErrNestedUnitOfWork)
	}

	pgTx, err := m.begin(ctx, opts)
	if err != nil {
		m.observer.ObserveUnitOfWork(OutcomeBeginError, time.Since(start))
		return apperror.NewInternal(fmt.Errorf("begin transaction: %w", err))
	}

	txCtx := ambient.Publish(ambient.Fork(ctx), txSlot, pgTx)

	// Commit and rollback close the handle's cell, which hides it from
	// every scope forked from txCtx as well.
	defer ambient.Take(txCtx, txSlot)

	defer func() {
		if p := recover(); p != nil {
			m.rollback(txCtx, pgTx, fmt.Errorf("panic: %v", p))
			m.observer.ObserveUnitOfWork(OutcomePanic, time.Since(start))
			panic(p)
		}
	}()

	if opts.StatementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds())
		if _, err := pgTx.Exec(ctx, stmt); err != nil {
			cause := fmt.Errorf("set statement_timeout: %w", err)
			return m.fail(txCtx, pgTx, start, apperror.NewInternal(cause))
		}
	}

	if err := fn(txCtx); err != nil {
		return m.fail(txCtx, pgTx, start, err)
	}

	// Never commit on behalf of a request that is gone.
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.rollback(txCtx, pgTx, ctxErr)
		m.observer.ObserveUnitOfWork(OutcomeCancelled, time.Since(start))
		return apperror.NewInternal(fmt.Errorf("unit of work aborted: %w", ctxErr))
	}

	if err := m.commit(txCtx, pgTx); err != nil {
		m.observer.ObserveUnitOfWork(OutcomeCommitError, time.Since(start))
		return apperror.NewInternal(fmt.Errorf("commit transaction: %w", err))
	}

	m.observer.ObserveUnitOfWork(OutcomeCommit, time.Since(start))
	return nil
}

func (m *TxManager) begin(ctx context.Context, opts TxOptions) (pgx.Tx, error) {
	if m.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.acquireTimeout)
		defer cancel()
	}
	return m.conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
}

// fail rolls back after an operation error. When the rollback itself fails
// its error wins as Internal; the operation error stays in the chain.
func (m *TxManager) fail(ctx context.Context, pgTx pgx.Tx, start time.Time, opErr error) error {
	if rbErr := m.rollback(ctx, pgTx, opErr); rbErr != nil {
		m.observer.ObserveUnitOfWork(OutcomeRollbackError, time.Since(start))
		return apperror.NewInternal(errors.Join(fmt.Errorf("rollback transaction: %w", rbErr), opErr))
	}
	m.observer.ObserveUnitOfWork(OutcomeRollback, time.Since(start))
	return opErr
}

// commit waits for in-flight borrowers of the handle before committing.
func (m *TxManager) commit(ctx context.Context, pgTx pgx.Tx) error {
	found, err := ambient.Finish(ctx, txSlot, func(t pgx.Tx) error {
		return t.Commit(ctx)
	})
	if !found {
		return pgTx.Commit(ctx)
	}
	return err
}

// rollback runs detached from ctx cancellation so the connection is
// never returned to the pool with an open transaction.
func (m *TxManager) rollback(ctx context.Context, pgTx pgx.Tx, reason error) error {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.rollbackTimeout)
	defer cancel()

	do := func(t pgx.Tx) error { return t.Rollback(rbCtx) }
	found, err := ambient.Finish(ctx, txSlot, do)
	if !found {
		err = do(pgTx)
	}
	if err != nil {
		logger.Error(ctx, "rollback failed", "error", err, "original_error", reason)
	}
	return err
}
