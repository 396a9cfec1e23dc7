// Package handlers – error translation.
//
// This file is the single place a failure becomes an HTTP response. Handlers
// and the router hand any error to fail()/Fail(); the taxonomy kind (apperr)
// decides the status, and the envelope is rendered uniformly. Unknown errors
// are coerced to an internal failure so storage or framework detail never
// leaks to clients.
package handlers

import (
	"net/http"
	"runtime/debug"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/mkarlis/go-users-backend/internal/apperr"
	"github.com/mkarlis/go-users-backend/internal/http/middleware"
)

// production gates the stack field in error envelopes.
var production atomic.Bool

// SetProduction toggles production mode for error rendering. In production
// the `stack` field is omitted from every error envelope.
func SetProduction(v bool) { production.Store(v) }

// fail aborts the request with the envelope for err and logs server-side
// failures with the request-scoped logger.
func fail(c *gin.Context, err error) {
	e := apperr.From(err)
	status := e.Kind.Status()

	resp := Response{
		Status:  "error",
		Code:    status,
		Message: e.Message,
		Errors:  e.Fields,
	}
	if !production.Load() {
		resp.Stack = string(debug.Stack())
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Err(err).
			Int("status", status).
			Str("kind", e.Kind.String()).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(). External packages (e.g. router
// setup) should call Fail to return consistent envelopes without depending
// on unexported helpers.
func Fail(c *gin.Context, err error) { fail(c, err) }

// FailStatus writes an error envelope for statuses outside the taxonomy
// (405, 429). The stack field is never included here; these are transport
// conditions, not application failures.
func FailStatus(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{
		Status:  "error",
		Code:    status,
		Message: msg,
	})
}
