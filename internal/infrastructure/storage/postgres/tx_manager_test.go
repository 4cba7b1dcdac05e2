package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipdah/internal/core/ambient"
	"sipdah/internal/core/apperror"
	"sipdah/internal/core/tx"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveUnitOfWork(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func newMockManager(t *testing.T) (pgxmock.PgxPoolIface, *TxManager, *recordingObserver) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	obs := &recordingObserver{}
	return mock, NewTxManager(mock, WithObserver(obs), WithAcquireTimeout(time.Second)), obs
}

func expectBegin(mock pgxmock.PgxPoolIface) {
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
}

func TestRunInTransaction_CommitsOnSuccess(t *testing.T) {
	mock, m, obs := newMockManager(t)

	expectBegin(mock)
	mock.ExpectExec("INSERT INTO users").WithArgs("u1").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs("u1", "r1").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	exec := NewExecutor(mock)
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		if _, err := exec.Exec(ctx, "insert user", "INSERT INTO users (id) VALUES ($1)", "u1"); err != nil {
			return err
		}
		_, err := exec.Exec(ctx, "attach role", "INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", "u1", "r1")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{OutcomeCommit}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollsBackOnOperationError(t *testing.T) {
	mock, m, obs := newMockManager(t)
	want := apperror.NewNotFound("role", "USER")

	expectBegin(mock)
	mock.ExpectExec("INSERT INTO users").WithArgs("u1").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	exec := NewExecutor(mock)
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := exec.Exec(ctx, "insert user", "INSERT INTO users (id) VALUES ($1)", "u1"); err != nil {
			return err
		}
		return want
	})

	assert.Same(t, want, err)
	assert.Equal(t, []string{OutcomeRollback}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_BeginFailure(t *testing.T) {
	mock, m, obs := newMockManager(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}).
		WillReturnError(errors.New("pool exhausted"))

	called := false
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.True(t, apperror.IsInternal(err))
	assert.Contains(t, err.Error(), "pool exhausted")
	assert.False(t, called)
	assert.Equal(t, []string{OutcomeBeginError}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_CommitFailure(t *testing.T) {
	mock, m, obs := newMockManager(t)

	expectBegin(mock)
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	v, err := tx.Run(context.Background(), m, func(ctx context.Context) (string, error) {
		return "created", nil
	})

	assert.True(t, apperror.IsInternal(err))
	assert.Empty(t, v)
	assert.Equal(t, []string{OutcomeCommitError}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollbackFailureWins(t *testing.T) {
	mock, m, obs := newMockManager(t)
	opErr := apperror.NewNotFound("role", "USER")

	expectBegin(mock)
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return opErr
	})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInternal, appErr.Code)
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, []string{OutcomeRollbackError}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RejectsNestedRun(t *testing.T) {
	mock, m, obs := newMockManager(t)

	expectBegin(mock)
	mock.ExpectRollback()

	innerCalled := false
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return m.RunInTransaction(ctx, func(ctx context.Context) error {
			innerCalled = true
			return nil
		})
	})

	assert.True(t, apperror.IsInternal(err))
	assert.ErrorIs(t, err, tx.ErrNestedUnitOfWork)
	assert.False(t, innerCalled)
	assert.Equal(t, []string{OutcomeNested, OutcomeRollback}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollsBackOnPanic(t *testing.T) {
	mock, m, obs := newMockManager(t)

	expectBegin(mock)
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = m.RunInTransaction(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, []string{OutcomePanic}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollsBackWhenContextCancelled(t *testing.T) {
	mock, m, obs := newMockManager(t)

	expectBegin(mock)
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := m.RunInTransaction(ctx, func(ctx context.Context) error {
		cancel()
		return nil
	})

	assert.True(t, apperror.IsInternal(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{OutcomeCancelled}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_HandleDoesNotOutliveRun(t *testing.T) {
	mock, m, _ := newMockManager(t)

	expectBegin(mock)
	mock.ExpectCommit()

	var leaked context.Context
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		leaked = ctx
		return nil
	})

	require.NoError(t, err)
	assert.False(t, InTransaction(leaked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_HandleHiddenFromForkedScopesAfterRun(t *testing.T) {
	mock, m, _ := newMockManager(t)

	expectBegin(mock)
	mock.ExpectCommit()
	mock.ExpectExec("UPDATE roles").WithArgs("r1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	var forked context.Context
	err := m.RunInTransaction(context.Background(), func(ctx context.Context) error {
		forked = ambient.Fork(ctx)
		assert.True(t, InTransaction(forked))
		return nil
	})
	require.NoError(t, err)

	assert.False(t, InTransaction(forked))
	assert.False(t, InTransaction(ambient.Fork(forked)))

	n, err := NewExecutor(mock).Exec(forked, "rename role", "UPDATE roles SET name = 'X' WHERE id = $1", "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_ConcurrentRunsFromOneScopeAreIsolated(t *testing.T) {
	mock, m, obs := newMockManager(t)
	mock.MatchExpectationsInOrder(false)

	for range 2 {
		expectBegin(mock)
		mock.ExpectCommit()
	}

	owner := ambient.NewSlot[string]("owner")
	parent := ambient.NewScope(context.Background())

	var inside, done sync.WaitGroup
	inside.Add(2)
	errs := make([]error, 2)
	for i, name := range []string{"first", "second"} {
		done.Add(1)
		go func() {
			defer done.Done()
			errs[i] = m.RunInTransaction(parent, func(ctx context.Context) error {
				ambient.Publish(ctx, owner, name)
				inside.Done()
				inside.Wait()

				got, ok := ambient.Read(ctx, owner)
				assert.True(t, ok)
				assert.Equal(t, name, got)
				assert.True(t, InTransaction(ctx))
				assert.False(t, InTransaction(parent))
				return nil
			})
		}()
	}
	done.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.False(t, ambient.Has(parent, owner))
	assert.False(t, InTransaction(parent))
	assert.ElementsMatch(t, []string{OutcomeCommit, OutcomeCommit}, obs.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_DoesNotLeakToParentContext(t *testing.T) {
	mock, m, _ := newMockManager(t)

	expectBegin(mock)
	mock.ExpectCommit()

	parent := context.Background()
	err := m.RunInTransaction(parent, func(ctx context.Context) error {
		assert.False(t, InTransaction(parent))
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadOnly_UsesReadOnlyAccessMode(t *testing.T) {
	mock, m, _ := newMockManager(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly})
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectCommit()

	err := m.ReadOnly(context.Background(), func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionWithOptions_NoStatementTimeout(t *testing.T) {
	mock, m, _ := newMockManager(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	opts := TxOptions{IsolationLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}
	err := m.RunInTransactionWithOptions(context.Background(), opts, func(ctx context.Context) error { return nil })

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithStatementTimeout_Disabled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := NewTxManager(mock, WithStatementTimeout(0))
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	require.NoError(t, m.RunInTransaction(context.Background(), func(ctx context.Context) error { return nil }))
	assert.NoError(t, mock.ExpectationsWereMet())
}
