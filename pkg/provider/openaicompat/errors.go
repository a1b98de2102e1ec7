package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/chatbridge/pkg/api"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into
// an APIError. The body is parsed as an OpenAI-style error object when
// possible. All HTTP adapters share this mapping.
func MapHTTPError(resp *http.Response) *api.APIError {
	message, code := ExtractError(resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to backend"
		}
		apiErr := api.NewInvalidRequestError("", message)
		apiErr.Code = code
		return apiErr

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		if code == "" {
			code = "backend_auth_failed"
		}
		return api.NewProviderError(code, message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "backend resource not found"
		}
		return api.NewNotFoundError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	case resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		}
		return api.NewServerError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", resp.StatusCode)
		}
		return api.NewServerError(message)
	}
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into an APIError. Context cancellation maps to
// a cancelled error.
func MapNetworkError(err error) *api.APIError {
	if errors.Is(err, context.Canceled) {
		return api.NewCancelledError("request cancelled")
	}
	return api.NewServerError(fmt.Sprintf("backend connection error: %s", err.Error()))
}

// ExtractError reads at most 4KB of body and returns the error message and
// code if the body is an OpenAI-style ({"error":{...}}) or Ollama-style
// ({"error":"..."}) error.
func ExtractError(body io.Reader) (message, code string) {
	if body == nil {
		return "", ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "", ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message, errorCode(errResp.Error.Code, errResp.Error.Type)
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &flat); err == nil && flat.Error != "" {
		return flat.Error, ""
	}

	return "", ""
}
