package account

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrPhoneAlreadyInUse = errors.New("phone number already registered")
)

// Service handles account business logic
type Service struct {
	repo *Repository
}

// NewService creates a new account service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new account
func (s *Service) Create(ctx context.Context, req *CreateAccountRequest) (*Account, error) {
	existing, err := s.repo.GetByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneAlreadyInUse
	}

	return s.repo.Create(ctx, req)
}

// GetByID retrieves an account by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// List retrieves all accounts with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*Account, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// Update modifies an existing account
func (s *Service) Update(ctx context.Context, id int64, req *UpdateAccountRequest) (*Account, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrAccountNotFound
	}

	return s.repo.Update(ctx, id, req)
}
