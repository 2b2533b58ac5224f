package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/services"
	"github.com/desertthunder/splitx/internal/session"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Exchanger trades an authorization code for tokens.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*models.AuthTokens, error)
}

// Authenticator is the OAuth provider used by the auth routes.
type Authenticator interface {
	Exchanger
	AuthorizeURL(state string) string
	Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
}

// Deps are the collaborators of a [Server].
type Deps struct {
	Config   shared.ServerConfig
	Auth     Authenticator
	Catalogs services.CatalogFactory
	Inferer  services.Inferer // optional
	Sessions session.Store
	Logger   *log.Logger

	// SweepInterval controls the session janitor; zero uses [session.DefaultSweepInterval].
	SweepInterval time.Duration
}

// Server is the splitx HTTP API.
type Server struct {
	cfg      shared.ServerConfig
	auth     Authenticator
	catalogs services.CatalogFactory
	inferer  services.Inferer
	sessions session.Store
	logger   *log.Logger
	router   *BasicRouter
	sweep    time.Duration
	now      func() time.Time
}

// New wires routes and middleware.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		cfg:      deps.Config,
		auth:     deps.Auth,
		catalogs: deps.Catalogs,
		inferer:  deps.Inferer,
		sessions: deps.Sessions,
		logger:   logger,
		router:   NewBasicRouter(),
		sweep:    deps.SweepInterval,
		now:      time.Now,
	}

	s.router.Use(
		Recover(logger),
		Logging(logger),
		CORS(deps.Config.ClientURL),
		RateLimit(deps.Config.RateLimit, deps.Config.RateBurst, deps.Config.TrustedProxies...),
	)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Handle(http.MethodGet, "/health", s.public(s.health))

	r.Handle(http.MethodPost, "/auth/start", s.public(s.startAuth))
	r.Handle(http.MethodGet, "/auth/callback", s.public(s.callback))
	r.Handle(http.MethodGet, "/auth/session/{state}", s.public(s.sessionTokens))
	r.Handle(http.MethodPost, "/auth/refresh", s.public(s.refresh))

	r.Handle(http.MethodGet, "/users/me", s.protected(s.currentUser))

	r.Handle(http.MethodGet, "/playlists", s.protected(s.listPlaylists))
	r.Handle(http.MethodGet, "/playlists/{playlistId}", s.protected(s.playlistDetail))

	r.Handle(http.MethodGet, "/smart-split/{playlistId}/preview", s.protected(s.preview))
	r.Handle(http.MethodPost, "/smart-split/{playlistId}/apply", s.protected(s.apply))
	r.Handle(http.MethodPost, "/smart-split/{playlistId}/filter", s.protected(s.filter))
	r.Handle(http.MethodPost, "/smart-split/{playlistId}/create", s.protected(s.create))
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on the configured address until ctx is cancelled, then shuts down gracefully. The session janitor
// runs for the lifetime of the server.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.sessions != nil {
		go session.NewJanitor(s.sessions, s.sweep, s.logger).Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

type tokenHandlerFunc func(w http.ResponseWriter, r *http.Request, token string) error

func (s *Server) public(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, s.log(r), err)
		}
	})
}

// protected requires a bearer token before calling h.
func (s *Server) protected(h tokenHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			err = h(w, r, token)
		}
		if err != nil {
			writeError(w, s.log(r), err)
		}
	})
}

// log returns the request-scoped logger set by [Logging], or the server logger.
func (s *Server) log(r *http.Request) *log.Logger {
	return LoggerFrom(r.Context(), s.logger)
}

func (s *Server) engine(r *http.Request, token string) *tasks.PlaylistEngine {
	return tasks.NewPlaylistEngine(s.catalogs.ForToken(token), s.inferer, s.log(r))
}
