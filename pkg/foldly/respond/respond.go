// Package respond defines the uniform response envelope returned by every
// API operation. Clients key cache invalidation off the envelope, so the
// shape is identical for successes, validation failures, authorization
// failures and rate-limit denials.
package respond

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the envelope's Code field.
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeWorkspaceNotFound = "WORKSPACE_NOT_FOUND"
	CodeNotFound          = "NOT_FOUND"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeSlugTaken         = "SLUG_TAKEN"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeCannotModifyOwner = "CANNOT_MODIFY_OWNER"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Blocked bool        `json:"blocked,omitempty"`
	ResetAt int64       `json:"resetAt,omitempty"`
}

// OK writes a success envelope with the given payload.
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail writes a failure envelope with an error code and human-readable message.
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{Success: false, Error: message, Code: code})
}

// RateLimited writes the rate-limit denial envelope. ResetAt is propagated
// from the limiter unchanged so clients can schedule a retry.
func RateLimited(c *gin.Context, resetAt time.Time) {
	c.JSON(http.StatusTooManyRequests, Envelope{
		Success: false,
		Error:   "Too many requests, please try again later",
		Code:    CodeRateLimited,
		Blocked: true,
		ResetAt: resetAt.Unix(),
	})
}
