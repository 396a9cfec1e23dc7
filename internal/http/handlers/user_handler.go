// User HTTP handlers.
//
// This file exposes REST endpoints for the user resource:
//   - POST   /v1/users        (create)
//   - GET    /v1/users        (list, paginated/filtered/sorted, ETag support)
//   - GET    /v1/users/{id}   (fetch)
//   - PATCH  /v1/users/{id}   (partial update)
//   - DELETE /v1/users/{id}   (delete)
//
// Handlers are transport-thin: they bind and validate input (schema package),
// call the application service, and translate results into envelopes. When a
// request carries several invalid sources, the field errors are aggregated in
// a fixed order (path params, then body, then query) into one response.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkarlis/go-users-backend/internal/apperr"
	"github.com/mkarlis/go-users-backend/internal/domain"
	"github.com/mkarlis/go-users-backend/internal/repo"
	"github.com/mkarlis/go-users-backend/internal/schema"
	"github.com/mkarlis/go-users-backend/internal/services"
)

//
// Service contract (context-aware)
//

// UserService defines the user lifecycle operations consumed by HTTP
// handlers. Implementations should be safe for concurrent use and must honor
// the provided context for cancellation and timeouts.
type UserService interface {
	// Create inserts a new user from validated input.
	Create(ctx context.Context, in schema.CreateUserInput) (*domain.User, error)
	// Update applies a partial update and returns the fresh row.
	Update(ctx context.Context, id int64, in schema.UpdateUserInput) (*domain.User, error)
	// Get fetches a user by id.
	Get(ctx context.Context, id int64) (*domain.User, error)
	// Delete removes a user by id.
	Delete(ctx context.Context, id int64) error
	// List returns a page of users plus the total matching count.
	List(ctx context.Context, in schema.ListUsersInput) ([]domain.User, int64, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the user resource. It depends on an
// abstract service interface to keep transport concerns separate from
// business logic.
type Handlers struct {
	userSvc UserService
}

// New constructs a Handlers instance bound to the given service.
func New(userSvc UserService) *Handlers {
	return &Handlers{userSvc: userSvc}
}

//
// DTOs (documentation only; binding happens in the schema package)
//

// CreateUserRequest is the JSON payload for creating a user.
type CreateUserRequest struct {
	FirstName string `json:"first_name" example:"Jane"`
	LastName  string `json:"last_name" example:"Doe"`
	Email     string `json:"email" example:"jane.doe@example.com"`
	// IsActive defaults to true when omitted.
	IsActive *bool `json:"is_active,omitempty" example:"true"`
}

// UpdateUserRequest is the JSON payload for partially updating a user.
// Omitted fields are left untouched.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty" example:"Janet"`
	LastName  *string `json:"last_name,omitempty" example:"Doe"`
	IsActive  *bool   `json:"is_active,omitempty" example:"false"`
}

// UserData wraps a single user for the envelope's data field.
type UserData struct {
	User domain.User `json:"user"`
}

// UserListData wraps a page of users plus the echoed pagination window.
type UserListData struct {
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
	Total  int64         `json:"total"`
	Users  []domain.User `json:"users"`
}

// DeletedData carries the id of a deleted user.
type DeletedData struct {
	ID int64 `json:"id"`
}

//
// Handlers
//

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Description Creates a user. The email is lowercased and must not already be registered.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateUserRequest  true  "Create user payload"
//
// @Success     201  {object}  handlers.Response{data=handlers.UserData}
// @Failure     400  {object}  handlers.Response  "Validation failure or duplicate email"
// @Failure     500  {object}  handlers.Response  "Internal error"
// @Router      /v1/users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	in, fe := schema.BindCreateUser(c)
	if len(fe) > 0 {
		fail(c, apperr.Validation(fe))
		return
	}

	u, err := h.userSvc.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, UserData{User: *u})
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user
// @Description Applies a partial update; omitted fields stay untouched. Field errors from the path and the body are reported together.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                         true  "User ID"  minimum(1)
// @Param       body  body  handlers.UpdateUserRequest  true  "Fields to update"
//
// @Success     200  {object}  handlers.Response{data=handlers.UserData}
// @Failure     400  {object}  handlers.Response  "Validation failure"
// @Failure     404  {object}  handlers.Response  "User not found"
// @Failure     500  {object}  handlers.Response  "Internal error"
// @Router      /v1/users/{id} [patch]
func (h *Handlers) UpdateUser(c *gin.Context) {
	var fields []apperr.FieldError

	id, idErr := schema.BindUserID(c)
	if idErr != nil {
		fields = append(fields, *idErr)
	}
	in, fe := schema.BindUpdateUser(c)
	fields = append(fields, fe...)

	if len(fields) > 0 {
		fail(c, apperr.Validation(fields))
		return
	}

	u, err := h.userSvc.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, UserData{User: *u})
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a user
// @Tags        Users
// @Produce     json
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     200  {object}  handlers.Response{data=handlers.UserData}
// @Failure     400  {object}  handlers.Response  "Invalid id"
// @Failure     404  {object}  handlers.Response  "User not found"
// @Failure     500  {object}  handlers.Response  "Internal error"
// @Router      /v1/users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, idErr := schema.BindUserID(c)
	if idErr != nil {
		fail(c, apperr.Validation([]apperr.FieldError{*idErr}))
		return
	}

	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, UserData{User: *u})
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Tags        Users
// @Produce     json
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     200  {object}  handlers.Response{data=handlers.DeletedData}
// @Failure     400  {object}  handlers.Response  "Invalid id"
// @Failure     404  {object}  handlers.Response  "User not found"
// @Failure     500  {object}  handlers.Response  "Internal error"
// @Router      /v1/users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, idErr := schema.BindUserID(c)
	if idErr != nil {
		fail(c, apperr.Validation([]apperr.FieldError{*idErr}))
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, DeletedData{ID: id})
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Description Returns a page of users with optional is_active filtering and column ordering. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Users
// @Produce     json
//
// @Param       limit          query   int     false "Page size"                      minimum(1) default(10)
// @Param       offset         query   int     false "Rows to skip"                   minimum(0) default(0)
// @Param       is_active      query   string  false "Filter on active flag"          Enums(true, false)
// @Param       order_by       query   string  false "Column to order by"             Enums(id, first_name, last_name, email, is_active, created_at, updated_at)
// @Param       sort           query   string  false "Sort direction"                 Enums(asc, desc)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.Response{data=handlers.UserListData}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.Response  "Validation failure"
// @Failure     500  {object}  handlers.Response  "Internal error"
// @Router      /v1/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	in, fe := schema.BindListUsers(c)
	if len(fe) > 0 {
		fail(c, apperr.Validation(fe))
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.userSvc.(*services.UserService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.UsersStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"users:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.userSvc.List(ctx, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, UserListData{
		Offset: in.Offset,
		Limit:  in.Limit,
		Total:  total,
		Users:  items,
	})
}
