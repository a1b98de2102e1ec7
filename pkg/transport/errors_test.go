package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		errType    api.ErrorType
		wantStatus int
	}{
		{api.ErrorTypeInvalidRequest, http.StatusBadRequest},
		{api.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{api.ErrorTypeNotFound, http.StatusNotFound},
		{api.ErrorTypeTooManyRequests, http.StatusTooManyRequests},
		{api.ErrorTypeProviderError, http.StatusBadGateway},
		{api.ErrorTypeEmptyResponse, http.StatusBadGateway},
		{api.ErrorTypeIncomplete, http.StatusBadGateway},
		{api.ErrorTypeCancelled, StatusClientClosedRequest},
		{api.ErrorTypeServerError, http.StatusInternalServerError},
		{api.ErrorTypeModelError, http.StatusInternalServerError},
		{api.ErrorType("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			if got := HTTPStatusFromError(&api.APIError{Type: tt.errType}); got != tt.wantStatus {
				t.Errorf("HTTPStatusFromError(%q) = %d, want %d", tt.errType, got, tt.wantStatus)
			}
		})
	}
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, api.NewInvalidRequestError("model", "is required"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Type != api.ErrorTypeInvalidRequest || resp.Error.Param != "model" || resp.Error.Message != "is required" {
		t.Errorf("error = %+v", resp.Error)
	}
}
