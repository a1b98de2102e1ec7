package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeModelError      ErrorType = "model_error"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"

	// Stream outcomes.
	ErrorTypeProviderError ErrorType = "provider_error"
	ErrorTypeIncomplete    ErrorType = "incomplete"
	ErrorTypeEmptyResponse ErrorType = "empty_response"
	ErrorTypeCancelled     ErrorType = "cancelled"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: [%s] %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewModelError creates an APIError for model-related errors.
func NewModelError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeModelError,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}

// NewUnauthorizedError creates an APIError for failed authentication.
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewProviderError creates an APIError carrying a failure reported by the
// provider. The provider's code and message are kept verbatim.
func NewProviderError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeProviderError,
		Code:    code,
		Message: message,
	}
}

// NewIncompleteError creates an APIError for a stream the provider ended
// as incomplete. reason is the provider's reason text.
func NewIncompleteError(reason string) *APIError {
	return &APIError{
		Type:    ErrorTypeIncomplete,
		Code:    reason,
		Message: "response incomplete: " + reason,
	}
}

// NewEmptyResponseError creates an APIError for a stream that terminated
// without text, reasoning or tool calls.
func NewEmptyResponseError() *APIError {
	return &APIError{
		Type:    ErrorTypeEmptyResponse,
		Message: "provider returned no text and no tool calls",
	}
}

// NewCancelledError creates an APIError for a request cancelled by the caller.
func NewCancelledError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeCancelled,
		Message: message,
	}
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsType reports whether err carries an APIError of the given type.
func IsType(err error, t ErrorType) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Type == t
}

// IsCancelled reports whether err represents a cancelled request.
func IsCancelled(err error) bool {
	return IsType(err, ErrorTypeCancelled)
}
