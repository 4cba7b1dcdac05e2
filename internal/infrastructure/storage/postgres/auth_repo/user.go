// Package auth_repo provides PostgreSQL implementations of the user and
// role repositories. Every statement goes through postgres.Executor and
// therefore joins the ambient unit of work when one is active.
package auth_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"sipdah/internal/domain/user"
	"sipdah/internal/infrastructure/storage/postgres"
)

const usersTable = "users"

var (
	userColumns       = postgres.ExtractDBColumns[user.User]()
	userInsertColumns = postgres.Without(userColumns, "deleted_at")
)

// UserRepo implements user.Repository.
type UserRepo struct {
	exec *postgres.Executor
}

// NewUserRepo creates a new user repository.
func NewUserRepo(exec *postgres.Executor) *UserRepo {
	return &UserRepo{exec: exec}
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	q := postgres.Builder().
		Insert(usersTable).
		Columns(userInsertColumns...).
		Values(u.ID, u.Email, u.PasswordHash, u.Name, u.PhoneNumber, u.PhotoURL, u.CreatedAt, u.UpdatedAt)

	_, err := r.exec.ExecBuilder(ctx, "insert user", q)
	return err
}

// GetByID returns the live user with userID or nil.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (*user.User, error) {
	return r.getOne(ctx, "get user by id", squirrel.Eq{"id": userID})
}

// GetByEmail returns the live user with email or nil.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "get user by email", squirrel.Eq{"email": email})
}

// ExistsByEmail reports whether a live user owns email.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(usersTable).
		Where(squirrel.Eq{"email": email, "deleted_at": nil})

	return r.exec.ExistsBuilder(ctx, "user exists by email", q)
}

func (r *UserRepo) getOne(ctx context.Context, op string, where squirrel.Eq) (*user.User, error) {
	where["deleted_at"] = nil
	q := postgres.Builder().
		Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1)

	var u user.User
	if err := r.exec.GetBuilder(ctx, op, &u, q); err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var _ user.Repository = (*UserRepo)(nil)
