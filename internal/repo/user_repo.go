// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is absent, lookup functions return ErrNotFound
//     (aliasing gorm.ErrRecordNotFound). Absence is not a storage failure.
//   - Every other DB error is logged here with its cause and re-raised as a
//     generic apperr.Internal; callers above this boundary never see raw
//     storage-engine detail.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mkarlis/go-users-backend/internal/apperr"
	"github.com/mkarlis/go-users-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer
// and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListFilter carries the validated pagination/filter/ordering parameters of a
// list query. The zero value of OrderBy/Sort selects the defaults (id asc).
type ListFilter struct {
	Limit    int
	Offset   int
	IsActive *bool
	OrderBy  string
	Sort     string
}

// storageErr logs a storage failure with its cause and wraps it uniformly as
// an Internal error. This is the single choke point of the propagation policy
// for persistence failures.
func storageErr(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("storage failure")
	return apperr.Internal("storage operation failed", err)
}

// CreateUser inserts u and populates its generated fields (ID, timestamps).
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return storageErr("create_user", err)
	}
	return nil
}

// UpdateUser applies the given column/value pairs to the user with the given
// id and returns the fresh record. Only the supplied columns change;
// updated_at is refreshed by GORM. An empty fields map is a no-op read.
// Returns ErrNotFound when no row matches.
func UpdateUser(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) (*domain.User, error) {
	if len(fields) == 0 {
		return GetUser(ctx, db, id)
	}
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, storageErr("update_user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetUser(ctx, db, id)
}

// DeleteUser removes the user with the given id.
// Returns ErrNotFound when no row matches.
func DeleteUser(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return storageErr("delete_user", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser fetches a single user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).First(&u, id).Error
	switch {
	case err == nil:
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, storageErr("get_user", err)
	}
}

// GetUserByEmail fetches a single user by exact email match, or ErrNotFound
// if missing. Emails are stored lowercase, so callers must normalize first.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, storageErr("get_user_by_email", err)
	}
}

// ListUsers returns the page of users selected by f, ordered by f.OrderBy and
// f.Sort (defaults: id ascending). The optional IsActive filter is an
// equality predicate.
func ListUsers(ctx context.Context, db *gorm.DB, f ListFilter) ([]domain.User, error) {
	q := db.WithContext(ctx).Model(&domain.User{})

	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	q = q.Order(orderClause(f.OrderBy, f.Sort)).
		Limit(f.Limit).
		Offset(f.Offset)

	var out []domain.User
	if err := q.Find(&out).Error; err != nil {
		return nil, storageErr("list_users", err)
	}
	return out, nil
}

// CountUsers returns the total number of users matching the optional
// isActive filter.
func CountUsers(ctx context.Context, db *gorm.DB, isActive *bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.User{})
	if isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, storageErr("count_users", err)
	}
	return total, nil
}

// orderClause renders the ORDER BY expression for a validated orderBy/sort
// pair. The column is re-checked against the whitelist so that this layer
// never interpolates arbitrary input into SQL, even if a caller skips schema
// validation.
func orderClause(orderBy, sort string) string {
	if !domain.IsUserColumn(orderBy) {
		orderBy = "id"
	}
	if sort != "desc" {
		sort = "asc"
	}
	return fmt.Sprintf("%s %s", orderBy, sort)
}
