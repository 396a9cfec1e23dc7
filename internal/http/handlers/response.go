// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the uniform response envelope applied to every endpoint,
// success or failure. No handler writes ad-hoc JSON: success bodies go through
// ok(), failures through fail() (errors.go), so the API shape stays uniform
// and machine-friendly.
//
// Envelope:
//
//	HTTP/1.1 200 OK
//	{ "status": "success", "code": 200, "data": { "user": { ... } } }
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "status": "error",
//	  "code": 400,
//	  "message": "request validation failed",
//	  "errors": [ { "field": "email", "error": "must be a valid email address" } ]
//	}
//
// Outside production mode, error envelopes additionally carry a `stack` string
// to speed up debugging. The correlation id is not part of the envelope; it
// travels in the X-Request-ID response header.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mkarlis/go-users-backend/internal/apperr"
)

// Response is the fixed envelope returned by all endpoints.
//
// Status is "success" or "error"; Code mirrors the HTTP status so clients
// reading only the body still see it. Errors is populated for validation
// failures only, Stack only outside production mode.
type Response struct {
	Status  string `json:"status" example:"success"`
	Code    int    `json:"code" example:"200"`
	Message string `json:"message,omitempty" example:"user not found"`
	Data    any    `json:"data,omitempty"`
	// Per-field validation failures, in source order (params, body, query)
	Errors []apperr.FieldError `json:"errors,omitempty"`
	// Stack trace, omitted in production builds
	Stack string `json:"stack,omitempty"`
}

// ok writes a success envelope with the given HTTP status and payload.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Status: "success",
		Code:   status,
		Data:   data,
	})
}
