package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/slogx"
)

// StatusHandler serves GET /v1/auth/status/{user_id}. An unknown user is a
// normal "not authenticated" answer, never an error.
type StatusHandler struct {
	Gateway  *service.AuthGateway
	Sessions *service.SessionService
}

type statusResponse struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"user_id"`
	Scopes        []string   `json:"scopes,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Message       string     `json:"message"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("user_id")
	if userID == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	authenticated, err := h.Gateway.IsAuthenticated(ctx, userID)
	if err != nil {
		log.Error("auth status check failed", "user_id", userID, "err", err)
		ErrServerError.WriteError(w)
		return
	}

	if !authenticated {
		httpx.WriteJSON(w, http.StatusOK, statusResponse{
			Authenticated: false,
			UserID:        userID,
			Message:       "user is not authenticated; run the authorization flow",
		})
		return
	}

	resp := statusResponse{
		Authenticated: true,
		UserID:        userID,
		Message:       "user is authenticated",
	}
	if session, err := h.Sessions.Get(ctx, userID); err == nil {
		t := session.ExpiresAt
		resp.ExpiresAt = &t
	}
	if bundle, err := h.Gateway.Credentials.Get(ctx, userID); err == nil {
		resp.Scopes = bundle.Scopes
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("could not read bundle for status", "user_id", userID, "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
