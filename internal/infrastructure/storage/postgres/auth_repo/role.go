package auth_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"sipdah/internal/domain/role"
	"sipdah/internal/infrastructure/storage/postgres"
)

const (
	rolesTable     = "roles"
	userRolesTable = "user_roles"
)

var roleColumns = postgres.ExtractDBColumns[role.Role]()

// RoleRepo implements role.Repository.
type RoleRepo struct {
	exec *postgres.Executor
}

// NewRoleRepo creates a new role repository.
func NewRoleRepo(exec *postgres.Executor) *RoleRepo {
	return &RoleRepo{exec: exec}
}

// Create inserts a new role. A duplicate name returns Conflict.
func (r *RoleRepo) Create(ctx context.Context, rl *role.Role) error {
	q := postgres.Builder().
		Insert(rolesTable).
		Columns(roleColumns...).
		Values(rl.ID, rl.Name, rl.CreatedAt, rl.UpdatedAt)

	_, err := r.exec.ExecBuilder(ctx, "insert role", q)
	return err
}

func (r *RoleRepo) GetByID(ctx context.Context, roleID string) (*role.Role, error) {
	return r.getOne(ctx, "get role by id", squirrel.Eq{"id": roleID})
}

func (r *RoleRepo) GetByName(ctx context.Context, name string) (*role.Role, error) {
	return r.getOne(ctx, "get role by name", squirrel.Eq{"name": name})
}

func (r *RoleRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(rolesTable).
		Where(squirrel.Eq{"name": name})

	return r.exec.ExistsBuilder(ctx, "role exists by name", q)
}

// List returns all roles ordered by name.
func (r *RoleRepo) List(ctx context.Context) ([]role.Role, error) {
	q := postgres.Builder().
		Select(roleColumns...).
		From(rolesTable).
		OrderBy("name")

	roles := make([]role.Role, 0)
	if err := r.exec.SelectBuilder(ctx, "list roles", &roles, q); err != nil {
		return nil, err
	}
	return roles, nil
}

// Attach grants roleID to userID. Granting twice is a no-op.
func (r *RoleRepo) Attach(ctx context.Context, userID, roleID string) error {
	q := postgres.Builder().
		Insert(userRolesTable).
		Columns("user_id", "role_id").
		Values(userID, roleID).
		Suffix("ON CONFLICT (user_id, role_id) DO NOTHING")

	_, err := r.exec.ExecBuilder(ctx, "attach role", q)
	return err
}

// HasRole reports whether userID holds the role called name.
func (r *RoleRepo) HasRole(ctx context.Context, userID, name string) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(userRolesTable + " ur").
		Join(rolesTable + " r ON r.id = ur.role_id").
		Where(squirrel.Eq{"ur.user_id": userID, "r.name": name})

	return r.exec.ExistsBuilder(ctx, "user has role", q)
}

func (r *RoleRepo) getOne(ctx context.Context, op string, where squirrel.Eq) (*role.Role, error) {
	q := postgres.Builder().
		Select(roleColumns...).
		From(rolesTable).
		Where(where).
		Limit(1)

	var rl role.Role
	if err := r.exec.GetBuilder(ctx, op, &rl, q); err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rl, nil
}

var _ role.Repository = (*RoleRepo)(nil)
