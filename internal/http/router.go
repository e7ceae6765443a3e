package http

import (
	"log/slog"
	"net/http"

	"github.com/tailortalk/server/internal/booking"
	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/jwtx"
	"github.com/tailortalk/server/pkg/slogx"
)

// Router wires the HTTP handlers to their routes and applies the shared
// middleware stack.
type Router struct {
	Mux *http.ServeMux

	Logger *slog.Logger

	Store       store.Store
	Flow        *service.FlowService
	Gateway     *service.AuthGateway
	Credentials *service.CredentialService
	Sessions    *service.SessionService
	Calendar    *booking.Client
	Tokens      *jwtx.Codec

	handler http.Handler
}

// ApplyRoutes registers every route on the mux. Authentication endpoints are
// rate limited by client IP, calendar endpoints by authenticated user.
func (router *Router) ApplyRoutes() *Router {
	authn := httpx.AuthnMiddleware(router.Tokens)

	initiate := &InitiateHandler{FlowService: router.Flow}
	callback := &CallbackHandler{FlowService: router.Flow, Tokens: router.Tokens}
	status := &StatusHandler{Gateway: router.Gateway, Sessions: router.Sessions}
	revoke := &RevokeHandler{Gateway: router.Gateway}
	users := &UsersHandler{Credentials: router.Credentials}
	calendar := &CalendarHandler{Calendar: router.Calendar}
	health := &HealthHandler{Store: router.Store}

	router.Mux.Handle("POST /v1/auth/initiate", httpx.Chain(initiate,
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
	router.Mux.Handle("GET /v1/auth/callback", httpx.Chain(callback,
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
	router.Mux.Handle("GET /v1/auth/status/{user_id}", httpx.Chain(status,
		httpx.RateLimitByIP(httpx.ModerateLimit),
	))
	router.Mux.Handle("DELETE /v1/auth/revoke/{user_id}", httpx.Chain(revoke,
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
	router.Mux.Handle("GET /v1/auth/users", httpx.Chain(users,
		authn,
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))

	router.Mux.Handle("POST /v1/calendar/events", httpx.Chain(http.HandlerFunc(calendar.CreateEvent),
		authn,
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))
	router.Mux.Handle("GET /v1/calendar/events", httpx.Chain(http.HandlerFunc(calendar.ListEvents),
		authn,
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))

	router.Mux.HandleFunc("GET /livez", health.Livez)
	router.Mux.HandleFunc("GET /readyz", health.Readyz)

	router.handler = httpx.Chain(router.Mux,
		httpx.Middleware(slogx.HTTPMiddleware(router.Logger)),
	)

	return router
}

func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.handler.ServeHTTP(w, r)
}
