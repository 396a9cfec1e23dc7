// Package services – UserService
//
// This file implements the UserService, which owns the business rules of the
// user resource: email uniqueness on creation, the is_active default,
// partial-update semantics, and existence checks before update, read, and
// delete. Validation of raw input happens earlier (schema package); by the
// time a service method runs, its arguments are structurally sound.
//
// Predictable failures are returned as taxonomy errors (apperr) so the
// handler layer can map every outcome to an HTTP result from one place.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mkarlis/go-users-backend/internal/apperr"
	"github.com/mkarlis/go-users-backend/internal/domain"
	"github.com/mkarlis/go-users-backend/internal/repo"
	"github.com/mkarlis/go-users-backend/internal/schema"
)

// UserRepo defines the repository contract required by UserService.
// Implementations are responsible for persistence of user rows.
type UserRepo interface {
	// CreateUser inserts a new user row, filling generated fields in place.
	CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error

	// UpdateUser applies a partial column update and returns the fresh row.
	UpdateUser(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) (*domain.User, error)

	// DeleteUser removes a user by id.
	DeleteUser(ctx context.Context, db *gorm.DB, id int64) error

	// GetUser fetches a user by id.
	GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error)

	// GetUserByEmail fetches a user by (lowercase) email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// ListUsers returns a page of users for the given filter.
	ListUsers(ctx context.Context, db *gorm.DB, f repo.ListFilter) ([]domain.User, error)

	// CountUsers returns the total number of users matching the filter.
	CountUsers(ctx context.Context, db *gorm.DB, isActive *bool) (int64, error)
}

// UserService provides the create, read, update, delete, and list
// operations of the user resource.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, r UserRepo) *UserService {
	return &UserService{DB: db, Repo: r}
}

// Create inserts a new user. The email must not already be registered;
// a duplicate is a bad request, not a conflict, matching the public API
// contract. When is_active is absent the user starts active.
func (s *UserService) Create(ctx context.Context, in schema.CreateUserInput) (*domain.User, error) {
	if _, err := s.Repo.GetUserByEmail(ctx, s.DB, in.Email); err == nil {
		return nil, apperr.BadRequest("user with this email address already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	u := &domain.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		IsActive:  active,
	}
	if err := s.Repo.CreateUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update applies the supplied fields to an existing user and returns the
// updated row. Absent fields stay untouched. A missing user is not found.
func (s *UserService) Update(ctx context.Context, id int64, in schema.UpdateUserInput) (*domain.User, error) {
	fields := map[string]any{}
	if in.FirstName != nil {
		fields["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		fields["last_name"] = *in.LastName
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}

	u, err := s.Repo.UpdateUser(ctx, s.DB, id, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

// Delete removes a user by id. Deleting an absent user is not found.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.Repo.DeleteUser(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	return nil
}

// List returns a page of users plus the total count matching the filter,
// so callers can build pagination envelopes.
func (s *UserService) List(ctx context.Context, in schema.ListUsersInput) ([]domain.User, int64, error) {
	f := repo.ListFilter{
		Limit:    in.Limit,
		Offset:   in.Offset,
		IsActive: in.IsActive,
		OrderBy:  in.OrderBy,
		Sort:     in.Sort,
	}

	items, err := s.Repo.ListUsers(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountUsers(ctx, s.DB, in.IsActive)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
