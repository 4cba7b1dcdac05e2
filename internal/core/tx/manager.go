// Package tx defines the unit of work boundary used by domain services.
// Services depend on Manager; the implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
	"errors"
)

// ErrNestedUnitOfWork is the cause reported when a unit of work is started
// from inside another one.
var ErrNestedUnitOfWork = errors.New("unit of work already active in this scope")

// Manager runs operations as a single unit of work.
type Manager interface {
	// RunInTransaction executes fn within a database transaction that is
	// ambient in the context passed to fn. Repositories called with that
	// context join the transaction without extra parameters.
	//
	// The transaction commits iff fn returns nil. Any error, panic or
	// cancellation of ctx rolls it back. Nested calls fail with an
	// Internal error wrapping ErrNestedUnitOfWork.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Run executes fn as one unit of work and returns its value.
// The value is discarded when the commit fails.
func Run[T any](ctx context.Context, m Manager, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := m.RunInTransaction(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
