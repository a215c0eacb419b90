// Package app wires the store, the route adapter and the router into one
// http.Handler.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/iliamunaev/users-api/internal/apperr"
	"github.com/iliamunaev/users-api/internal/config"
	"github.com/iliamunaev/users-api/internal/middleware"
	"github.com/iliamunaev/users-api/internal/service/pool"
	"github.com/iliamunaev/users-api/internal/service/tracker"
	"github.com/iliamunaev/users-api/internal/store"
	"github.com/iliamunaev/users-api/internal/trace"
	"github.com/iliamunaev/users-api/internal/transport"
	httptransport "github.com/iliamunaev/users-api/internal/transport/http"
	"github.com/iliamunaev/users-api/internal/users"
)

const apiPrefix = "/api/v1"

type App struct {
	Handler http.Handler

	cfg     config.Config
	store   store.UserStore
	tracker *tracker.Tracker
	errors  *httptransport.ErrorHandler
	crashed chan any
}

type Option func(*options)

type options struct {
	store  store.UserStore
	hasher users.Hasher
}

// WithStore replaces the store selected by the database config.
func WithStore(s store.UserStore) Option {
	return func(o *options) { o.store = s }
}

func WithHasher(h users.Hasher) Option {
	return func(o *options) { o.hasher = h }
}

// New builds the application. Without WithStore, an empty database URL
// selects the in-memory store and anything else opens PostgreSQL.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.store == nil {
		s, err := openStore(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		o.store = s
	}
	if o.hasher == nil {
		o.hasher = users.BcryptHasher{Cost: cfg.BcryptCost}
	}

	a := &App{
		cfg:     cfg,
		store:   o.store,
		tracker: &tracker.Tracker{},
		errors:  httptransport.NewErrorHandler(cfg.Production(), cfg.Trace.Header),
		crashed: make(chan any, 1),
	}

	adapterOpts := httptransport.Options{
		Pool:           pool.New(cfg.Database.MaxConns),
		Tracker:        a.tracker,
		RequestTimeout: cfg.Server.RequestTimeout,
		TraceHeader:    cfg.Trace.Header,
	}
	if cfg.Server.CrashOnPanic {
		adapterOpts.Crash = a.crash
	}
	adapter := httptransport.NewAdapter(a.errors, adapterOpts)

	ctrl := users.NewControllers(users.NewService(o.store, o.hasher))
	a.Handler = middleware.Trace(log, cfg.Trace.Header)(middleware.Logging(a.router(adapter, ctrl)))
	return a, nil
}

func openStore(ctx context.Context, db config.Database, log zerolog.Logger) (store.UserStore, error) {
	if db.URL == "" {
		log.Warn().Msg("database url not set, using in-memory store")
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(ctx, db.URL, db.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return pg, nil
}

func (a *App) router(adapter *httptransport.Adapter, ctrl *users.Controllers) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/health", adapter.Handle(a.health)).Methods(http.MethodGet)

	v1 := r.PathPrefix(apiPrefix).Subrouter()
	v1.Handle("", adapter.Handle(a.index)).Methods(http.MethodGet)
	v1.Handle("/", adapter.Handle(a.index)).Methods(http.MethodGet)
	users.Register(v1.PathPrefix("/users").Subrouter(), adapter, ctrl)

	r.PathPrefix("/api").MatcherFunc(unversioned).HandlerFunc(redirectToLatest)

	r.NotFoundHandler = http.HandlerFunc(a.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(a.methodNotAllowed)
	return r
}

// Crashed delivers the value of a recovered controller panic when
// server.crash_on_panic is set. The caller is expected to stop the process.
func (a *App) Crashed() <-chan any { return a.crashed }

func (a *App) crash(v any) {
	select {
	case a.crashed <- v:
	default:
	}
}

// Close releases the store.
func (a *App) Close() error { return a.store.Close() }

func (a *App) health(ctx context.Context, _ transport.Request) (transport.Response, error) {
	return transport.Raw(http.StatusOK, map[string]any{
		"status":      "UP",
		"timestamp":   time.Now().UTC(),
		"traceId":     trace.ID(ctx),
		"version":     a.cfg.Version,
		"environment": a.cfg.Env,
		"inFlight":    a.tracker.Running(),
	}), nil
}

type endpoint struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

func (a *App) index(context.Context, transport.Request) (transport.Response, error) {
	return transport.Raw(http.StatusOK, map[string]any{
		"message": "Users API v1",
		"version": a.cfg.Version,
		"endpoints": []endpoint{
			{Path: "/users", Methods: []string{http.MethodGet, http.MethodPost}, Description: "User management endpoints"},
			{Path: "/users/{id}", Methods: []string{http.MethodGet, http.MethodPatch}, Description: "Single user endpoints"},
		},
	}), nil
}

func unversioned(r *http.Request, _ *mux.RouteMatch) bool {
	p := r.URL.Path
	if p != "/api" && !strings.HasPrefix(p, "/api/") {
		return false
	}
	return p != apiPrefix && !strings.HasPrefix(p, apiPrefix+"/")
}

func redirectToLatest(w http.ResponseWriter, r *http.Request) {
	target := apiPrefix + strings.TrimPrefix(r.URL.Path, "/api")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	a.errors.Handle(w, r, apperr.NotFound(
		apperr.WithCode("ROUTE_NOT_FOUND"),
		apperr.WithMessage(fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path)),
	))
}

func (a *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.errors.Handle(w, r, apperr.BadRequest(
		apperr.WithCode("METHOD_NOT_ALLOWED"),
		apperr.WithMessage(fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path)),
	))
}
