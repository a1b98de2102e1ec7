package openaicompat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

func httpResp(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType api.ErrorType
		wantMsg  string
	}{
		{"bad request with body", 400, `{"error":{"message":"bad model","code":"model_not_found"}}`, api.ErrorTypeInvalidRequest, "bad model"},
		{"unauthorized", 401, ``, api.ErrorTypeProviderError, "backend authentication failed"},
		{"not found", 404, `{"error":"model 'x' not found"}`, api.ErrorTypeNotFound, "model 'x' not found"},
		{"rate limit", 429, ``, api.ErrorTypeTooManyRequests, "backend rate limit exceeded"},
		{"server error", 503, `oops`, api.ErrorTypeServerError, "backend server error (HTTP 503)"},
		{"teapot", 418, ``, api.ErrorTypeServerError, "unexpected backend error (HTTP 418)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(httpResp(tt.status, tt.body))
			if err.Type != tt.wantType || err.Message != tt.wantMsg {
				t.Errorf("got %s/%q, want %s/%q", err.Type, err.Message, tt.wantType, tt.wantMsg)
			}
		})
	}
}

func TestMapNetworkError(t *testing.T) {
	if err := MapNetworkError(context.Canceled); err.Type != api.ErrorTypeCancelled {
		t.Errorf("canceled mapped to %s", err.Type)
	}
	if err := MapNetworkError(errors.New("connection refused")); err.Type != api.ErrorTypeServerError {
		t.Errorf("network error mapped to %s", err.Type)
	}
}
