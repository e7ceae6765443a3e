package http

import (
	"net/http"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/slogx"
)

// RevokeHandler serves DELETE /v1/auth/revoke/{user_id}. Revocation is
// idempotent, so revoking an unknown user still reports success.
type RevokeHandler struct {
	Gateway *service.AuthGateway
}

type revokeResponse struct {
	Revoked bool   `json:"revoked"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("user_id")
	if userID == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Gateway.RevokeAccess(ctx, userID); err != nil {
		log.Error("revoke failed", "user_id", userID, "err", err)
		mapServiceError(err).WriteError(w)
		return
	}

	log.Info("access revoked", "user_id", userID)

	httpx.WriteJSON(w, http.StatusOK, revokeResponse{
		Revoked: true,
		UserID:  userID,
		Message: "credentials and session removed",
	})
}
