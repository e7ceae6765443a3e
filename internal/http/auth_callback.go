package http

import (
	"net/http"
	"time"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/jwtx"
	"github.com/tailortalk/server/pkg/slogx"
)

// CallbackHandler serves GET /v1/auth/callback, the redirect target Google
// sends the user back to with `code` and `state` query parameters.
type CallbackHandler struct {
	FlowService *service.FlowService
	Tokens      *jwtx.Codec
}

type callbackResponse struct {
	UserID       string    `json:"user_id"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()

	// The provider redirects with error= when the user denied the consent
	// screen or the request was malformed on Google's side.
	if provErr := q.Get("error"); provErr != "" {
		log.Warn("provider returned error on callback", "provider_error", provErr)
		(&APIError{
			StatusCode:  http.StatusBadRequest,
			Code:        ErrorCodeAccessDenied,
			Description: "the provider denied the authorization request",
		}).WriteError(w)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	userID, err := h.FlowService.Complete(ctx, code, state)
	if err != nil {
		log.Warn("auth flow completion failed", "err", err)
		mapServiceError(err).WriteError(w)
		return
	}

	token, expiresAt, err := h.Tokens.Mint(userID, "", time.Now().UTC())
	if err != nil {
		log.Error("failed to mint session token", "user_id", userID, "err", err)
		ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, callbackResponse{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    expiresAt,
	})
}
