package auth_repo

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipdah/internal/core/apperror"
	"sipdah/internal/domain/user"
	"sipdah/internal/infrastructure/storage/postgres"
)

func newMockPool(t *testing.T) (pgxmock.PgxPoolIface, *postgres.Executor) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, postgres.NewExecutor(mockPool)
}

// anyArgs matches n statement arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func userRows(mockPool pgxmock.PgxPoolIface, u *user.User) *pgxmock.Rows {
	var nilString *string
	var nilTime *time.Time
	return mockPool.NewRows(userColumns).
		AddRow(u.ID, u.Email, u.PasswordHash, u.Name, nilString, nilString, u.CreatedAt, u.UpdatedAt, nilTime)
}

func TestUserRepo_Create(t *testing.T) {
	t.Run("Should insert the user", func(t *testing.T) {
		mockPool, exec := newMockPool(t)
		repo := NewUserRepo(exec)
		u := user.NewUser("Alice", "a@x.com", "hash")

		mockPool.ExpectExec("INSERT INTO users").
			WithArgs(u.ID, u.Email, u.PasswordHash, u.Name, u.PhoneNumber, u.PhotoURL, u.CreatedAt, u.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(context.Background(), u))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map a duplicate email to Conflict", func(t *testing.T) {
		mockPool, exec := newMockPool(t)
		repo := NewUserRepo(exec)
		u := user.NewUser("Alice", "a@x.com", "hash")

		mockPool.ExpectExec("INSERT INTO users").
			WithArgs(anyArgs(len(userInsertColumns))...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		err := repo.Create(context.Background(), u)
		assert.True(t, apperror.IsConflict(err))
	})
}

func TestUserRepo_GetByEmail(t *testing.T) {
	t.Run("Should return the live user", func(t *testing.T) {
		mockPool, exec := newMockPool(t)
		repo := NewUserRepo(exec)
		want := user.NewUser("Alice", "a@x.com", "hash")

		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE deleted_at IS NULL AND email = \\$1 LIMIT 1").
			WithArgs("a@x.com").
			WillReturnRows(userRows(mockPool, want))

		got, err := repo.GetByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Nil(t, got.PhoneNumber)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return nil when absent", func(t *testing.T) {
		mockPool, exec := newMockPool(t)
		repo := NewUserRepo(exec)

		mockPool.ExpectQuery("SELECT (.+) FROM users").
			WithArgs("b@x.com").
			WillReturnRows(mockPool.NewRows(userColumns))

		got, err := repo.GetByEmail(context.Background(), "b@x.com")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUserRepo_GetByID(t *testing.T) {
	mockPool, exec := newMockPool(t)
	repo := NewUserRepo(exec)
	want := user.NewUser("Alice", "a@x.com", "hash")

	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE deleted_at IS NULL AND id = \\$1").
		WithArgs(want.ID).
		WillReturnRows(userRows(mockPool, want))

	got, err := repo.GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Email, got.Email)
}

func TestUserRepo_ExistsByEmail(t *testing.T) {
	mockPool, exec := newMockPool(t)
	repo := NewUserRepo(exec)

	mockPool.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM users WHERE deleted_at IS NULL AND email = \\$1\\)").
		WithArgs("a@x.com").
		WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
