package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/httpx"
)

// Wire error codes for the authentication path.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeInvalidState     = "invalid_state"
	ErrorCodeTokenExchange    = "token_exchange_failed"
	ErrorCodeRefreshFailed    = "refresh_failed"
	ErrorCodeDecryption       = "decryption_failed"
	ErrorCodeStorageWrite     = "storage_write_failed"
	ErrorCodeAuthRequired     = "authentication_required"
	ErrorCodeAccessDenied     = "access_denied"
	ErrorCodeServerError      = "server_error"
)

// APIError is the JSON error payload every failure on the auth path returns.
// It implements the error interface so handlers can pass it around.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// mapServiceError converts a service-layer error into its wire form. Every
// taxonomy member the user can trigger gets a stable code; anything else is
// a 500.
func mapServiceError(err error) *APIError {
	switch {
	case errors.Is(err, service.ErrInvalidState):
		return &APIError{
			StatusCode:  http.StatusBadRequest,
			Code:        ErrorCodeInvalidState,
			Description: "state token is unknown, expired or already used; restart the authentication flow",
		}
	case errors.Is(err, service.ErrTokenExchange):
		return &APIError{
			StatusCode:  http.StatusBadGateway,
			Code:        ErrorCodeTokenExchange,
			Description: "token exchange with the provider failed; retry or restart the authentication flow",
		}
	case errors.Is(err, service.ErrAuthenticationRequired):
		return &APIError{
			StatusCode:  http.StatusUnauthorized,
			Code:        ErrorCodeAuthRequired,
			Description: "authentication required; run the authorization flow",
		}
	case errors.Is(err, service.ErrRefreshFailed):
		return &APIError{
			StatusCode:  http.StatusUnauthorized,
			Code:        ErrorCodeRefreshFailed,
			Description: "token refresh failed; re-run the authorization flow",
		}
	case errors.Is(err, service.ErrDecryption):
		return &APIError{
			StatusCode:  http.StatusConflict,
			Code:        ErrorCodeDecryption,
			Description: "stored credentials are unreadable; re-run the authorization flow",
		}
	case errors.Is(err, service.ErrStorageWrite):
		return &APIError{
			StatusCode:  http.StatusInternalServerError,
			Code:        ErrorCodeStorageWrite,
			Description: "failed to persist credentials",
		}
	case errors.Is(err, store.ErrNotFound):
		return &APIError{
			StatusCode:  http.StatusNotFound,
			Code:        ErrorCodeNotFound,
			Description: "no record for this user",
		}
	default:
		return ErrServerError
	}
}
