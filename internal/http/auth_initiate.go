package http

import (
	"encoding/json"
	"net/http"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/slogx"
)

// InitiateHandler serves POST /v1/auth/initiate. It mints a pending OAuth
// flow and returns the authorization URL the UI should send the user to.
type InitiateHandler struct {
	FlowService *service.FlowService
}

type initiateRequest struct {
	// UserHint optionally names the user starting the flow; the resolved
	// Google identity wins when the callback arrives.
	UserHint string `json:"user_hint,omitempty"`

	// Scopes overrides the default grant set (space-separated values are
	// not accepted; send a JSON array).
	Scopes []string `json:"scopes,omitempty"`
}

type initiateResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
	Message string `json:"message"`
}

func (h *InitiateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req initiateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ErrInvalidRequest.WriteError(w)
			return
		}
	}

	flow, err := h.FlowService.Start(ctx, req.UserHint, req.Scopes)
	if err != nil {
		log.Error("failed to start auth flow", "err", err)
		mapServiceError(err).WriteError(w)
		return
	}

	log.Info("authentication initiated", "flow_id", flow.ID)

	httpx.WriteJSON(w, http.StatusOK, initiateResponse{
		AuthURL: flow.AuthURL,
		State:   flow.State,
		Message: "visit auth_url to complete authentication",
	})
}
