// Package api exposes the entity, identity, session and integration
// contracts as a JSON HTTP surface.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/integrations"
	"github.com/mesh-intelligence/trackerhub/internal/session"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// TableSource resolves a table name to its handle.
type TableSource interface {
	Table(name string) (types.Table, error)
}

// Identity is the identity contract served under /api/auth.
type Identity interface {
	CurrentUser(ctx context.Context) (types.User, error)
	UpdateCurrentUser(ctx context.Context, patch types.Patch) (types.User, error)
	Logout(redirect string) string
	Login(ctx context.Context) (types.User, error)
	Authenticated() bool
}

// SessionGuard is the inactivity guard consulted before protected routes.
type SessionGuard interface {
	State() session.State
	Authenticate(ok bool) session.State
	Observe(event string) bool
	Logout()
}

// Integrations are the file upload and email stubs.
type Integrations interface {
	UploadFile(f integrations.File) (integrations.FileResult, error)
	SendEmail(ctx context.Context, e integrations.Email) (integrations.EmailResult, error)
}

// Server holds the collaborators behind the routes.
type Server struct {
	Tables       TableSource
	Identity     Identity
	Session      SessionGuard
	Integrations Integrations
	Logger       *zap.Logger
}

// NewRouter builds the HTTP handler.
//
// Routes:
//
//	GET    /api/entities/{table}          list (?sort=&limit=)
//	POST   /api/entities/{table}          create
//	DELETE /api/entities/{table}          delete by field (?field=&value=, value as in types.ParseMatchValue)
//	GET    /api/entities/{table}/{id}     get
//	PATCH  /api/entities/{table}/{id}     update
//	DELETE /api/entities/{table}/{id}     delete
//	GET    /api/auth/me                   current user
//	PATCH  /api/auth/me                   update current user
//	POST   /api/auth/login                login
//	POST   /api/auth/logout               logout
//	GET    /api/session                   session state
//	POST   /api/session/activity          report an interaction event
//	POST   /api/integrations/upload       file upload
//	POST   /api/integrations/email        send email
//
// Entity, identity and integration routes answer 401 unless the session
// is active.
func NewRouter(s *Server) http.Handler {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(WithRequestLogging(log))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/logout", s.logout)
		r.Get("/session", s.sessionState)
		r.Post("/session/activity", s.activity)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(s.Session, s.Identity))

			r.Get("/auth/me", s.me)
			r.Patch("/auth/me", s.updateMe)

			r.Route("/entities/{table}", func(r chi.Router) {
				r.Get("/", s.listEntities)
				r.Post("/", s.createEntity)
				r.Delete("/", s.deleteEntitiesBy)
				r.Get("/{id}", s.getEntity)
				r.Patch("/{id}", s.updateEntity)
				r.Delete("/{id}", s.deleteEntity)
			})

			r.Post("/integrations/upload", s.upload)
			r.Post("/integrations/email", s.email)
		})
	})

	return r
}
