// Package schema declares the accepted shape of every endpoint's input and
// turns raw HTTP values (JSON bodies, query strings, path parameters) into
// typed, validated values.
//
// Each Bind function is a pure transformation from request input to either a
// validated value or a list of field errors; it never writes a response.
// Route handlers compose the bind calls for the sources a route accepts and
// aggregate the resulting field errors into a single validation failure.
// Aggregation order across sources is fixed: path params, then body, then
// query. Within one source, errors follow the schema's field declaration
// order, not the input's order.
//
// Validation never partially applies: a typed value is produced only when
// every field of that input passed.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mkarlis/go-users-backend/internal/apperr"
	"github.com/mkarlis/go-users-backend/internal/domain"
)

// validate is the package validator. Field names reported in errors are the
// wire names (json/form tags), not Go struct field names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

//
// Defaults and limits
//

const (
	// DefaultLimit is applied when the list query omits limit.
	DefaultLimit = 10
	// DefaultOffset is applied when the list query omits offset.
	DefaultOffset = 0
)

//
// Validated values
//

// CreateUserInput is the validated, renamed payload of POST /v1/users.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string // lowercase-normalized
	// IsActive is nil when the field was absent; creation then defaults to true.
	IsActive *bool
}

// UpdateUserInput is the validated payload of PATCH /v1/users/:id. Nil fields
// were absent from the request and must not be applied.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	IsActive  *bool
}

// ListUsersInput is the validated query of GET /v1/users.
type ListUsersInput struct {
	Limit  int
	Offset int
	// IsActive is nil when no filter was requested.
	IsActive *bool
	// OrderBy is a users table column, or "" for the default (id).
	OrderBy string
	// Sort is "asc", "desc", or "" for the default (asc).
	Sort string
}

//
// Raw wire shapes
//

// createUserBody mirrors the accepted JSON body of POST /v1/users.
type createUserBody struct {
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name"  validate:"required,min=2"`
	Email     string `json:"email"      validate:"required,email"`
	IsActive  *bool  `json:"is_active"`
}

// updateUserBody mirrors the accepted JSON body of PATCH /v1/users/:id.
// Pointer fields distinguish "absent" from "supplied".
type updateUserBody struct {
	FirstName *string `json:"first_name" validate:"omitnil,min=2"`
	LastName  *string `json:"last_name"  validate:"omitnil,min=2"`
	IsActive  *bool   `json:"is_active"`
}

// listUsersQuery mirrors the raw query string of GET /v1/users. Values stay
// strings here; coercion happens in BindListUsers so that every failure can
// be reported per field.
type listUsersQuery struct {
	Limit    string `form:"limit"`
	Offset   string `form:"offset"`
	IsActive string `form:"is_active"`
	OrderBy  string `form:"order_by"`
	Sort     string `form:"sort"`
}

//
// Bind functions
//

// BindCreateUser validates the JSON body of POST /v1/users. On success the
// returned input carries renamed fields with the email lowercased.
func BindCreateUser(c *gin.Context) (CreateUserInput, []apperr.FieldError) {
	var raw createUserBody
	if fe := decodeJSONBody(c, &raw); fe != nil {
		return CreateUserInput{}, fe
	}
	if fe := fieldErrors(validate.Struct(raw)); len(fe) > 0 {
		return CreateUserInput{}, fe
	}
	return CreateUserInput{
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Email:     strings.ToLower(raw.Email),
		IsActive:  raw.IsActive,
	}, nil
}

// BindUpdateUser validates the JSON body of PATCH /v1/users/:id. Absent
// fields stay nil in the returned input.
func BindUpdateUser(c *gin.Context) (UpdateUserInput, []apperr.FieldError) {
	var raw updateUserBody
	if fe := decodeJSONBody(c, &raw); fe != nil {
		return UpdateUserInput{}, fe
	}
	if fe := fieldErrors(validate.Struct(raw)); len(fe) > 0 {
		return UpdateUserInput{}, fe
	}
	return UpdateUserInput{
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		IsActive:  raw.IsActive,
	}, nil
}

// BindUserID validates the :id path parameter: a number, at least 1.
func BindUserID(c *gin.Context) (int64, *apperr.FieldError) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &apperr.FieldError{Field: "id", Error: "must be a number"}
	}
	if id < 1 {
		return 0, &apperr.FieldError{Field: "id", Error: "must be greater than or equal to 1"}
	}
	return id, nil
}

// BindListUsers validates the query string of GET /v1/users, coercing numeric
// tokens and applying defaults (limit 10, offset 0). Errors are reported in
// declaration order: limit, offset, is_active, order_by, sort.
func BindListUsers(c *gin.Context) (ListUsersInput, []apperr.FieldError) {
	var raw listUsersQuery
	// Query strings always bind into string fields; the error path is unreachable.
	_ = c.ShouldBindQuery(&raw)

	out := ListUsersInput{Limit: DefaultLimit, Offset: DefaultOffset}
	var fields []apperr.FieldError

	if raw.Limit != "" {
		n, err := strconv.Atoi(raw.Limit)
		switch {
		case err != nil:
			fields = append(fields, apperr.FieldError{Field: "limit", Error: "must be a number"})
		case n < 1:
			fields = append(fields, apperr.FieldError{Field: "limit", Error: "must be greater than or equal to 1"})
		default:
			out.Limit = n
		}
	}

	if raw.Offset != "" {
		n, err := strconv.Atoi(raw.Offset)
		switch {
		case err != nil:
			fields = append(fields, apperr.FieldError{Field: "offset", Error: "must be a number"})
		case n < 0:
			fields = append(fields, apperr.FieldError{Field: "offset", Error: "must be greater than or equal to 0"})
		default:
			out.Offset = n
		}
	}

	switch raw.IsActive {
	case "":
	case "true":
		v := true
		out.IsActive = &v
	case "false":
		v := false
		out.IsActive = &v
	default:
		fields = append(fields, apperr.FieldError{Field: "is_active", Error: `must be "true" or "false"`})
	}

	if raw.OrderBy != "" {
		if !domain.IsUserColumn(raw.OrderBy) {
			fields = append(fields, apperr.FieldError{
				Field: "order_by",
				Error: "must be one of: " + strings.Join(domain.UserColumns(), ", "),
			})
		} else {
			out.OrderBy = raw.OrderBy
		}
	}

	switch raw.Sort {
	case "", "asc", "desc":
		out.Sort = raw.Sort
	default:
		fields = append(fields, apperr.FieldError{Field: "sort", Error: `must be "asc" or "desc"`})
	}

	if len(fields) > 0 {
		return ListUsersInput{}, fields
	}
	return out, nil
}

//
// Internals
//

// decodeJSONBody decodes the request body into dst. An empty body decodes as
// an empty object so that required-field errors are reported per field rather
// than as one opaque JSON failure.
func decodeJSONBody(c *gin.Context, dst any) []apperr.FieldError {
	if c.Request == nil || c.Request.Body == nil {
		return nil
	}
	err := json.NewDecoder(c.Request.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return []apperr.FieldError{{Field: ute.Field, Error: "must be a " + jsonTypeName(ute.Type)}}
	}
	return []apperr.FieldError{{Field: "body", Error: "must be valid JSON"}}
}

// jsonTypeName names the expected Go type of a mistyped JSON field in
// user-facing terms.
func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	default:
		return t.Kind().String()
	}
}

// fieldErrors translates validator failures into the wire error list,
// preserving struct declaration order.
func fieldErrors(err error) []apperr.FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Field: "body", Error: "must be valid JSON"}}
	}
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fe.Field(), Error: reason(fe)})
	}
	return out
}

// reason renders one validator failure as a human-readable message.
func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
