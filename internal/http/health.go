package http

import (
	"net/http"

	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/slogx"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	Store store.Store
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *HealthHandler) Livez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Store.Ping(ctx); err != nil {
		slogx.FromContext(ctx).Error("readiness probe failed", "err", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
