package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubManager records calls and fails the commit when commitErr is set.
type stubManager struct {
	calls     int
	commitErr error
}

func (m *stubManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return m.commitErr
}

func TestRun_ReturnsValueOnSuccess(t *testing.T) {
	m := &stubManager{}

	v, err := Run(context.Background(), m, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, m.calls)
}

func TestRun_PropagatesOperationError(t *testing.T) {
	want := errors.New("boom")

	v, err := Run(context.Background(), &stubManager{}, func(ctx context.Context) (string, error) {
		return "partial", want
	})

	assert.ErrorIs(t, err, want)
	assert.Empty(t, v)
}

func TestRun_DiscardsValueWhenCommitFails(t *testing.T) {
	m := &stubManager{commitErr: errors.New("commit failed")}

	v, err := Run(context.Background(), m, func(ctx context.Context) (*int, error) {
		n := 1
		return &n, nil
	})

	assert.Error(t, err)
	assert.Nil(t, v)
}
