// Package main provides a CLI tool for seeding the database with the
// built-in roles and an optional administrator account. It reads the same
// configuration as the server; ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME
// describe the account.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"sipdah/internal/config"
	"sipdah/internal/core/apperror"
	"sipdah/internal/core/tx"
	"sipdah/internal/domain/auth"
	"sipdah/internal/domain/role"
	"sipdah/internal/domain/user"
	"sipdah/internal/infrastructure/storage/postgres"
	"sipdah/internal/infrastructure/storage/postgres/auth_repo"
	"sipdah/pkg/logger"
)

// adminRole matches v1.AdminRole.
const adminRole = "ADMIN"

type adminAccount struct {
	Name     string
	Email    string
	Password string
}

type seeder struct {
	users  user.Repository
	roles  role.Repository
	txm    tx.Manager
	hasher auth.PasswordHasher
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, poolConfig(cfg.Database))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool,
		postgres.WithAcquireTimeout(cfg.Database.AcquireTimeout),
		postgres.WithRollbackTimeout(cfg.Database.RollbackTimeout),
		postgres.WithStatementTimeout(cfg.Database.StatementTimeout),
	)

	exec := postgres.NewExecutor(pool)
	s := &seeder{
		users:  auth_repo.NewUserRepo(exec),
		roles:  auth_repo.NewRoleRepo(exec),
		txm:    txManager,
		hasher: auth.NewBcryptHasher(cfg.App.BcryptCost),
	}

	admin := adminAccount{
		Name:     getEnv("ADMIN_NAME", "Administrator"),
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	}

	if err := s.run(ctx, admin); err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Info("seeding completed successfully")
}

// poolConfig sizes the pool from the shared database settings.
func poolConfig(db config.DatabaseConfig) postgres.PoolConfig {
	cfg := postgres.DefaultPoolConfig(db.DSN)
	cfg.MaxConns = db.MaxConns
	cfg.MinConns = db.MinConns
	cfg.MaxConnIdleTime = db.MaxConnIdleTime
	cfg.AcquireTimeout = db.AcquireTimeout
	return cfg
}

// run creates the built-in roles and, when admin carries an email, the
// administrator account. Everything is written in one unit of work.
func (s *seeder) run(ctx context.Context, admin adminAccount) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		roleIDs := make(map[string]string, 2)
		for _, name := range []string{role.DefaultName, adminRole} {
			r, err := s.ensureRole(ctx, name)
			if err != nil {
				return err
			}
			roleIDs[name] = r.ID
		}

		if admin.Email == "" {
			return nil
		}

		u, err := s.ensureUser(ctx, admin)
		if err != nil {
			return err
		}
		for _, name := range []string{role.DefaultName, adminRole} {
			if err := s.roles.Attach(ctx, u.ID, roleIDs[name]); err != nil {
				return err
			}
		}
		logger.Info(ctx, "admin user ready", "user_id", u.ID, "email", u.Email)
		return nil
	})
}

func (s *seeder) ensureRole(ctx context.Context, name string) (*role.Role, error) {
	existing, err := s.roles.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	r := role.NewRole(name)
	if err := s.roles.Create(ctx, r); err != nil {
		return nil, err
	}
	logger.Info(ctx, "role created", "name", name)
	return r, nil
}

func (s *seeder) ensureUser(ctx context.Context, admin adminAccount) (*user.User, error) {
	email := strings.ToLower(strings.TrimSpace(admin.Email))

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if admin.Password == "" {
		return nil, apperror.NewBadRequest("ADMIN_PASSWORD is required to create the admin user")
	}
	hash, err := s.hasher.Hash(admin.Password)
	if err != nil {
		return nil, err
	}

	u := user.NewUser(admin.Name, email, hash)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
