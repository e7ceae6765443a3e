package http

import (
	"net/http"

	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/slogx"
)

// UsersHandler serves GET /v1/auth/users, listing the IDs of every user with
// stored credentials. The route sits behind bearer authentication.
type UsersHandler struct {
	Credentials *service.CredentialService
}

type usersResponse struct {
	Users []string `json:"users"`
	Count int      `json:"count"`
}

func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users := make([]string, 0, 8)
	for id, err := range h.Credentials.ListUsers(ctx) {
		if err != nil {
			log.Error("user listing failed", "err", err)
			ErrServerError.WriteError(w)
			return
		}
		users = append(users, id)
	}

	httpx.WriteJSON(w, http.StatusOK, usersResponse{
		Users: users,
		Count: len(users),
	})
}
