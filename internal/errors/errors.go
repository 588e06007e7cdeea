package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// APIError is a domain error that carries its HTTP translation.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewAPIError creates a new APIError
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func NotFound(message string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrCodeNotFound, withDefault(message, "Resource not found"))
}

func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrCodeUnauthorized, withDefault(message, "Not authenticated"))
}

func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrCodeForbidden, withDefault(message, "Forbidden"))
}

func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrCodeBadRequest, withDefault(message, "Bad request"))
}

func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrCodeConflict, withDefault(message, "Resource already exists"))
}

func Validation(message string) *APIError {
	return NewAPIError(http.StatusUnprocessableEntity, ErrCodeValidation, withDefault(message, "Validation error"))
}

func PayloadTooLarge(message string) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, withDefault(message, "Request body too large"))
}

func TooManyRequests(message string) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrCodeRateLimited, withDefault(message, "Too many requests. Please try again later."))
}

func ServiceUnavailable(message string) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, withDefault(message, "Service temporarily unavailable"))
}

// Predefined errors
var (
	ErrInternal = NewAPIError(http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
)

// Translate maps any error to the APIError the client is allowed to see.
func Translate(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return Validation(first.Field() + ": failed on '" + first.Tag() + "' rule")
	}

	return ErrInternal
}

// Respond records err on the context and writes the error envelope.
// Uncategorized errors are logged and reported as INTERNAL_ERROR without detail.
func Respond(c *gin.Context, err error) {
	_ = c.Error(err)
	apiErr := Translate(err)
	if apiErr == ErrInternal {
		slog.Error("unhandled error", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(apiErr.Status, ErrorBody{Success: false, Error: apiErr})
}

// RespondBinding writes a 422 envelope for request binding failures.
func RespondBinding(c *gin.Context, err error) {
	apiErr := Translate(err)
	if apiErr == ErrInternal {
		// malformed JSON and type mismatches come through as plain errors
		apiErr = Validation("Invalid request body")
	}
	Respond(c, apiErr)
}

func withDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
