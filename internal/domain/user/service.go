package user

import (
	"context"

	"sipdah/internal/core/apperror"
	appctx "sipdah/internal/core/context"
)

// Service exposes read operations on users.
type Service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID returns the user with userID.
func (s *Service) GetByID(ctx context.Context, userID string) (*Response, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NewNotFound("user", userID)
	}
	return u.ToResponse(), nil
}

// GetCurrent returns the user behind the ambient identity.
func (s *Service) GetCurrent(ctx context.Context) (*Response, error) {
	identity, err := appctx.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, identity.UserID)
}
