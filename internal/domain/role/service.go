package role

import (
	"context"
	"strings"

	"sipdah/internal/core/apperror"
	"sipdah/internal/core/tx"
	"sipdah/pkg/logger"
)

// Service manages roles.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates a new role service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Create adds a role. Names are stored upper-cased and must be unique.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Role, error) {
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	if name == "" {
		return nil, apperror.NewBadRequest("role name is required").WithDetail("field", "name")
	}

	r, err := tx.Run(ctx, s.txm, func(ctx context.Context) (*Role, error) {
		exists, err := s.repo.ExistsByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.NewConflict("role already exists").WithDetail("name", name)
		}

		r := NewRole(name)
		if err := s.repo.Create(ctx, r); err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "role created", "role_id", r.ID, "name", r.Name)
	return r, nil
}

// GetByID returns the role with roleID.
func (s *Service) GetByID(ctx context.Context, roleID string) (*Role, error) {
	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperror.NewNotFound("role", roleID)
	}
	return r, nil
}

// List returns every role.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// HasRole reports whether userID holds the named role.
func (s *Service) HasRole(ctx context.Context, userID, name string) (bool, error) {
	return s.repo.HasRole(ctx, userID, name)
}
