package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the "code" field of every error response.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeSessionExpired       = "SESSION_EXPIRED"
	CodeInvalidCredential    = "INVALID_CREDENTIAL"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeDuplicateEmail       = "DUPLICATE_EMAIL"
	CodeUploadFailure        = "UPLOAD_FAILURE"
	CodeFederatedAuthFailure = "FEDERATED_AUTH_FAILURE"
	CodeRateLimited          = "RATE_LIMITED"
	CodeUnavailable          = "SERVICE_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

// ExposeErrorDetails controls whether wrapped causes are rendered in responses.
// It is switched off in production by the server.
var ExposeErrorDetails = true

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Details string            `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Fields carries per-field validation messages keyed by JSON field name.
	Fields map[string]string
	// Status overrides the status derived from Code when non-zero.
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to its response status.
func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case CodeValidation, CodeDuplicateEmail:
		return fiber.StatusBadRequest
	case CodeUnauthenticated, CodeSessionExpired, CodeInvalidCredentials, CodeFederatedAuthFailure:
		return fiber.StatusUnauthorized
	case CodeInvalidCredential, CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	case CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Predefined error constructors
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " not found",
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError reports schema violations with per-field messages (422).
func NewFieldValidationError(fields map[string]string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "Validation failed",
		Fields:  fields,
		Status:  fiber.StatusUnprocessableEntity,
	}
}

func NewUnauthenticatedError() *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: "Authentication required",
	}
}

func NewSessionExpiredError() *AppError {
	return &AppError{
		Code:    CodeSessionExpired,
		Message: "Session expired, please log in again",
	}
}

func NewInvalidCredentialError(err error) *AppError {
	return &AppError{
		Code:    CodeInvalidCredential,
		Message: "Invalid or malformed token",
		Err:     err,
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "Invalid email or password.",
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewDuplicateEmailError() *AppError {
	return &AppError{
		Code:    CodeDuplicateEmail,
		Message: "Email already exists.",
	}
}

func NewUploadFailureError(err error) *AppError {
	return &AppError{
		Code:    CodeUploadFailure,
		Message: "Image upload failed. Please try again.",
		Err:     err,
	}
}

func NewFederatedAuthError(err error) *AppError {
	return &AppError{
		Code:    CodeFederatedAuthFailure,
		Message: "Google authentication failed",
		Err:     err,
	}
}

func NewRateLimitedError() *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "Too many requests, please try again later.",
	}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// AsAppError unwraps err into an AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeInternal
		switch {
		case fe.Code == fiber.StatusTooManyRequests:
			code = CodeRateLimited
		case fe.Code == fiber.StatusRequestEntityTooLarge:
			code = CodeValidation
		case fe.Code == fiber.StatusNotFound:
			code = CodeNotFound
		case fe.Code < fiber.StatusInternalServerError:
			code = CodeValidation
		}
		return &AppError{Code: code, Message: fe.Message, Status: fe.Code}
	}
	return NewInternalError(err)
}

// RespondWithError renders err using the standard error envelope.
func RespondWithError(c *fiber.Ctx, err error) error {
	appErr := AsAppError(err)

	response := ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
	}
	if appErr.Err != nil && ExposeErrorDetails {
		response.Details = appErr.Err.Error()
	}

	return c.Status(appErr.HTTPStatus()).JSON(response)
}
