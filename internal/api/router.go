package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/webbase/adminapi/internal/api/handler"
	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/api/validation"
	"github.com/webbase/adminapi/internal/organization"
	"github.com/webbase/adminapi/internal/permission"
	"github.com/webbase/adminapi/internal/role"
	"github.com/webbase/adminapi/internal/user"
)

// APIPrefix is the mount point of every versioned route.
const APIPrefix = "/api/v1"

// TokenService validates and refreshes bearer tokens.
type TokenService interface {
	middleware.TokenAuthorizer
	handler.Refresher
}

// AuthService logs users in and manages their passwords.
type AuthService interface {
	handler.Authenticator
	handler.Passwords
}

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger           handler.DBPinger
	Driver             string
	Version            string
	OpenAPISpec        []byte
	Tokens             TokenService
	Auth               AuthService
	Checker            validation.Checker
	Users              user.Repository
	Roles              role.Repository
	Permissions        permission.Repository
	Organizations      organization.Repository
	AdminRole          string
	CORSAllowedOrigins []string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
// Reads need a valid bearer token; writes additionally need AdminRole.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{response.PaginationHeader, middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Driver, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec, deps.Version)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	tokenHandler := handler.NewTokenHandler(deps.Auth, deps.Tokens)
	userHandler := handler.NewUserHandler(deps.Users, deps.Auth, deps.Checker)
	roleHandler := handler.NewRoleHandler(deps.Roles, deps.Checker)
	permissionHandler := handler.NewPermissionHandler(deps.Permissions, deps.Checker)
	orgHandler := handler.NewOrganizationHandler(deps.Organizations, deps.Checker)

	adminOnly := middleware.RequireRole(deps.AdminRole)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Post("/token", tokenHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Tokens))

			r.Get("/token/refresh", tokenHandler.Refresh)
			r.Put("/password", userHandler.ChangePassword)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.GetByID)

				r.With(adminOnly).Post("/", userHandler.Create)
				r.With(adminOnly).Post("/batch-delete", userHandler.BatchDelete)
				r.With(adminOnly).Put("/{id}", userHandler.Update)
				r.With(adminOnly).Patch("/{id}", userHandler.Patch)
				r.With(adminOnly).Delete("/{id}", userHandler.Delete)
				r.With(adminOnly).Put("/{id}/password", userHandler.ResetPassword)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", roleHandler.List)
				r.Get("/{id}", roleHandler.GetByID)
				r.Get("/{id}/permissions", roleHandler.Permissions)

				r.With(adminOnly).Post("/", roleHandler.Create)
				r.With(adminOnly).Post("/batch-delete", roleHandler.BatchDelete)
				r.With(adminOnly).Put("/{id}", roleHandler.Update)
				r.With(adminOnly).Patch("/{id}", roleHandler.Patch)
				r.With(adminOnly).Delete("/{id}", roleHandler.Delete)
				r.With(adminOnly).Put("/{id}/permissions", roleHandler.SetPermissions)
			})

			r.Route("/permissions", func(r chi.Router) {
				r.Get("/", permissionHandler.List)
				r.Get("/{id}", permissionHandler.GetByID)
				r.Get("/{id}/children", permissionHandler.Children)

				r.With(adminOnly).Post("/", permissionHandler.Create)
				r.With(adminOnly).Post("/batch-delete", permissionHandler.BatchDelete)
				r.With(adminOnly).Put("/{id}", permissionHandler.Update)
				r.With(adminOnly).Patch("/{id}", permissionHandler.Patch)
				r.With(adminOnly).Delete("/{id}", permissionHandler.Delete)
			})

			r.Route("/orgs", func(r chi.Router) {
				r.Get("/", orgHandler.List)
				r.Get("/tree", orgHandler.Tree)
				r.Get("/{id}", orgHandler.GetByID)
				r.Get("/{id}/users", userHandler.ListByOrganization)

				r.With(adminOnly).Post("/", orgHandler.Create)
				r.With(adminOnly).Put("/{id}", orgHandler.Update)
				r.With(adminOnly).Patch("/{id}", orgHandler.Patch)
				r.With(adminOnly).Delete("/{id}", orgHandler.Delete)
			})
		})
	})

	return r
}
