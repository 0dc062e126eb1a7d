package router // package router defines how the stub's HTTP routes are registered

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/config"
	"github.com/iliyamo/construction-supply-tracker/internal/handler"
	"github.com/iliyamo/construction-supply-tracker/internal/metrics"
	"github.com/iliyamo/construction-supply-tracker/internal/middleware"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// Handlers groups the stub's handlers.
type Handlers struct {
	Auth     *handler.AuthHandler
	Requests *handler.RequestHandler
	Admin    *handler.AdminHandler
}

// New builds the stub service on repos: an echo instance with request
// ids, access logging, panic recovery and every route registered.  m
// may be nil to skip metrics.
func New(cfg config.StubConfig, repos handler.Repos, log *zap.Logger, m *metrics.Server) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog(log, m))
	e.Use(echomw.Recover())

	RegisterRoutes(e, Handlers{
		Auth:     handler.NewAuthHandler(cfg, repos, log),
		Requests: handler.NewRequestHandler(cfg, repos, log),
		Admin:    handler.NewAdminHandler(cfg, repos, log),
	}, cfg.JWTSecret, m)
	return e
}

// RegisterRoutes maps every endpoint.  Routes that need a session carry
// JWTAuth plus the roles allowed to call them; the handlers then apply
// ownership and complex scoping.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, m *metrics.Server) {
	// Unauthenticated.
	e.GET("/healthz", handler.Health)
	e.POST("/login", h.Auth.Login)
	e.GET("/invites/:token/validate", h.Admin.ValidateInvite)
	e.POST("/accept-invite", h.Admin.AcceptInvite)
	e.GET("/uploads/:name", h.Requests.Photo)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	auth := middleware.JWTAuth(jwtSecret)
	owner := middleware.RequireRole(model.RoleOwner)
	manager := middleware.RequireRole(model.RoleManager)
	worker := middleware.RequireRole(model.RoleWorker)
	staff := middleware.RequireRole(model.RoleOwner, model.RoleManager)

	e.GET("/me", h.Auth.Me, auth)

	// ---- Requests ----
	e.GET("/requests", h.Requests.List, auth)
	e.GET("/owner/requests", h.Requests.OwnerInbox, auth, owner)
	e.POST("/requests", h.Requests.Create, auth, worker)
	e.PATCH("/requests/:id", h.Requests.Edit, auth, worker)
	e.PATCH("/requests/:id/status", h.Requests.SetStatus, auth, middleware.RequireRole(model.RoleManager, model.RoleWorker))
	e.PATCH("/requests/:id/escalate", h.Requests.Escalate, auth, manager)
	e.PATCH("/requests/:id/owner", h.Requests.OwnerDecision, auth, owner)
	e.POST("/requests/:id/photo", h.Requests.UploadPhoto, auth, worker)

	// ---- Complexes ----
	e.GET("/complexes", h.Admin.ListComplexes, auth, staff)
	e.POST("/complexes", h.Admin.CreateComplex, auth, owner)

	// ---- Users and invites ----
	e.GET("/users", h.Admin.ListUsers, auth, staff)
	e.POST("/invites", h.Admin.CreateInvite, auth, staff)
	e.PATCH("/users/:id/password", h.Admin.ResetPassword, auth, staff)
	e.PATCH("/users/:id/enable", h.Admin.Enable, auth, staff)
	e.PATCH("/users/:id/disable", h.Admin.Disable, auth, staff)
	e.DELETE("/users/:id", h.Admin.DeleteUser, auth, staff)
}
