// Package httpapi is the edge's HTTP surface: an ordered route table over a
// chi router, JSON handlers for the API routes and a static-asset fallback.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/delivery"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/oauth"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/services"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/sessions"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/upstream"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deliverer routes one kind of lead submission.
type Deliverer interface {
	Deliver(ctx context.Context, sub delivery.Submission) (delivery.Result, error)
}

// AuthBackend serves auth directly from the database.
type AuthBackend interface {
	SignIn(ctx context.Context, email, password string, meta sessions.RequestMeta) (*sessions.AuthSession, error)
	StartTrial(ctx context.Context, name, company, email, password string, meta sessions.RequestMeta) (*sessions.AuthSession, error)
	ForgotPassword(ctx context.Context, email string) error
	CurrentSession(ctx context.Context, token string) (*services.SessionInfo, error)
	SignOut(ctx context.Context, token string) error
}

// AuthProxy forwards auth calls to the upstream API.
type AuthProxy interface {
	Proxy(ctx context.Context, method, path string, body []byte, authorization string) (*upstream.Response, error)
}

// OAuthProvider runs the CMS popup handshake.
type OAuthProvider interface {
	AuthorizeRedirect(provider, host string) (string, error)
	Callback(ctx context.Context, provider, host, code, state string) oauth.Handshake
}

// Deps are the collaborators chosen once at startup. A nil AuthProxy means
// direct mode; nil AuthProxy and nil Auth means auth is not configured.
type Deps struct {
	Contact  Deliverer
	Waitlist Deliverer

	Auth      AuthBackend
	AuthProxy AuthProxy
	// AuthPaths maps an auth route to its upstream path.
	AuthPaths map[string]string

	OAuth  OAuthProvider
	Assets http.Handler

	HasUpstreamAuth bool
	HasDatabase     bool

	Log logging.Logger
}

type Handler struct {
	deps Deps
	log  logging.Logger
}

func NewHandler(deps Deps) *Handler {
	if deps.Assets == nil {
		deps.Assets = http.NotFoundHandler()
	}
	return &Handler{deps: deps, log: deps.Log.With("module", "httpapi")}
}

type route struct {
	pattern string
	handler http.HandlerFunc
}

// routes is the edge's route table. Patterns are matched exactly except for
// the trailing /api/* catch-all; anything else falls through to assets.
func (h *Handler) routes() []route {
	return []route{
		{"/auth", h.cmsAuthorize},
		{"/api/cms/auth", h.cmsAuthorize},
		{"/callback", h.cmsCallback},
		{"/api/cms/callback", h.cmsCallback},
		{"/api/health", h.health},
		{"/api/contact", h.contact},
		{"/api/waitlist", h.waitlist},
		{"/api/auth/login", h.login},
		{"/api/auth/trial", h.trial},
		{"/api/auth/forgot-password", h.forgotPassword},
		{"/api/auth/session", h.session},
		{"/api/auth/logout", h.logout},
		{"/metrics", promhttp.Handler().ServeHTTP},
		{"/api/*", h.apiNotFound},
	}
}

// Router mounts the route table on a chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	for _, rt := range h.routes() {
		r.HandleFunc(rt.pattern, rt.handler)
	}
	r.NotFound(h.deps.Assets.ServeHTTP)
	r.MethodNotAllowed(h.deps.Assets.ServeHTTP)

	return r
}

type healthResponse struct {
	OK              bool   `json:"ok"`
	Service         string `json:"service"`
	HasUpstreamAuth bool   `json:"hasUpstreamAuth"`
	HasD1           bool   `json:"hasD1"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		OK:              true,
		Service:         serviceName,
		HasUpstreamAuth: h.deps.HasUpstreamAuth,
		HasD1:           h.deps.HasDatabase,
	})
}

func (h *Handler) apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "API route not found.")
}
