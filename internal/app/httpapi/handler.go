// Package httpapi exposes the tracker services over a JSON REST API.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	app "github.com/R3E-Network/tracker/internal/app"
	"github.com/R3E-Network/tracker/internal/app/audit"
	"github.com/R3E-Network/tracker/internal/app/domain/project"
	"github.com/R3E-Network/tracker/internal/app/health"
	"github.com/R3E-Network/tracker/internal/app/metrics"
	"github.com/R3E-Network/tracker/internal/config"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/httputil"
	"github.com/R3E-Network/tracker/internal/middleware"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// AuditReader serves durable audit history.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Options configures the handler's optional collaborators. Zero values give a
// working handler without auth, rate limiting or audit.
type Options struct {
	Logger      *logger.Logger
	Health      *health.Checker
	Audit       *audit.Log
	AuditStore  AuditReader
	Auth        config.AuthConfig
	CORSOrigins []string
	RateLimiter *middleware.RateLimiter
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	opts   Options
	cors   *middleware.CORSMiddleware
	log    *logger.Logger
	health *health.Checker
}

// NewHandler returns the full API: routes plus the middleware chain
// tracing -> recovery -> CORS -> auth -> rate limit -> router (metrics, audit).
func NewHandler(application *app.Application, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewDefault("http")
	}
	if opts.Health == nil {
		opts.Health = health.NewChecker(nil)
	}
	h := &handler{
		app:    application,
		opts:   opts,
		cors:   middleware.NewCORSMiddleware(opts.CORSOrigins),
		log:    opts.Logger,
		health: opts.Health,
	}

	var root http.Handler = h.router()
	if opts.RateLimiter != nil {
		root = opts.RateLimiter.Handler(root)
	}
	if opts.Auth.Enabled() {
		root = middleware.NewAuthMiddleware(opts.Auth.JWTSecret, opts.Auth.Issuer, opts.Logger, opts.Auth.SkipPaths).Handler(root)
	}
	root = h.cors.Handler(root)
	root = middleware.RecoveryMiddleware(opts.Logger)(root)
	return middleware.NewTracingMiddleware(opts.Logger).Handler(root)
}

func (h *handler) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware(), middleware.AuditMiddleware(h.opts.Audit))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, errors.NotFound("no such endpoint"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
		})
	})

	r.HandleFunc("/users", h.registerUser).Methods(http.MethodPost)
	r.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{login}", h.getUser).Methods(http.MethodGet)

	r.HandleFunc("/projects", h.createProject).Methods(http.MethodPost)
	r.HandleFunc("/projects", h.listProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}", h.getProject).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}/members", h.addMember).Methods(http.MethodPost)
	r.HandleFunc("/projects/{id}/members/{login}/role", h.memberRole).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}/milestones", h.listMilestones).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}/milestones", h.createMilestone).Methods(http.MethodPost)
	r.HandleFunc("/projects/{id}/bugs", h.listProjectBugs).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}/bugs/needs-testing", h.bugsNeedingTests).Methods(http.MethodGet)

	r.HandleFunc("/milestones/{id}", h.getMilestone).Methods(http.MethodGet)
	r.HandleFunc("/milestones/{id}", h.patchMilestone).Methods(http.MethodPatch)
	r.HandleFunc("/milestones/{id}/tickets", h.listMilestoneTickets).Methods(http.MethodGet)

	r.HandleFunc("/tickets", h.createTicket).Methods(http.MethodPost)
	r.HandleFunc("/tickets/{id}", h.getTicket).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{id}", h.patchTicket).Methods(http.MethodPatch)
	r.HandleFunc("/my/tickets", h.myTickets).Methods(http.MethodGet)

	r.HandleFunc("/bugs", h.createBug).Methods(http.MethodPost)
	r.HandleFunc("/bugs/{id}", h.getBug).Methods(http.MethodGet)
	r.HandleFunc("/bugs/{id}", h.patchBug).Methods(http.MethodPatch)
	r.HandleFunc("/my/bugs", h.myBugs).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/ws", h.streamEvents).Methods(http.MethodGet)
	r.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)
	return r
}

// actor resolves the caller. A token subject wins over ?user=; the role comes
// from ?role= and falls back to the token's role claim.
func actor(r *http.Request, needRole bool) (project.Actor, error) {
	q := r.URL.Query()
	login := logger.GetActor(r.Context())
	if login == "" {
		login = strings.TrimSpace(q.Get("user"))
	}
	if login == "" {
		return project.Actor{}, errors.Validation("user query parameter is required")
	}

	rawRole := q.Get("role")
	if strings.TrimSpace(rawRole) == "" {
		rawRole = middleware.GetUserRole(r.Context())
	}
	if strings.TrimSpace(rawRole) == "" && !needRole {
		return project.Actor{Login: login}, nil
	}
	role, err := project.ParseRole(rawRole)
	if err != nil {
		return project.Actor{}, err
	}
	return project.Actor{Login: login, Role: role}, nil
}

// pathID returns the {id} route variable after checking it is a UUID.
func pathID(r *http.Request) (string, error) {
	return parseID("id", mux.Vars(r)["id"])
}

func parseID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.Validation("%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.Validation("%s is not a valid UUID: %s", field, raw)
	}
	return id.String(), nil
}

// limit parses ?limit=, clamped to [1, max], defaulting to def.
func limit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if se := errors.GetServiceError(err); se == nil || se.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
	}
	httputil.WriteError(w, err)
}
