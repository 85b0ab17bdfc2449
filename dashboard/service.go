// Package dashboard serves the admin API under /api/admin: sessions, content management,
// the contact inbox, analytics, users and settings.
package dashboard

import (
	"time"

	"github.com/adonese/folio/analytics"
	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	loginLimit  = 10
	loginWindow = 15 * time.Minute
)

// Service holds the dependencies of the admin handlers.
type Service struct {
	Store       *store.Store
	Auth        *gateway.JWTAuth
	Analytics   *analytics.Service
	Redis       *redis.Client
	FolioConfig cms_fields.FolioConfig
	Logger      *logrus.Logger
}

// Routes mounts the admin API on r, normally the /api/admin group.
func (s *Service) Routes(r fiber.Router) {
	auth := r.Group("/auth")
	auth.Post("/login", gateway.RateLimit(gateway.RateLimitConfig{
		Name:   "login",
		Max:    loginLimit,
		Window: loginWindow,
		Redis:  s.Redis,
		Logger: s.Logger,
	}), s.Login)
	auth.Post("/logout", s.Logout)

	// guards are attached per route: Group(prefix, handlers...) applies them to the whole prefix
	with := func(guard []fiber.Handler, h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, guard...), h)
	}
	session := []fiber.Handler{s.Auth.AuthMiddleware(), s.sessionUser}
	editor := with(session, gateway.RequireRole(cms_fields.RoleAdmin, cms_fields.RoleEditor))
	admin := with(session, gateway.RequireRole(cms_fields.RoleAdmin))

	auth.Get("/me", with(session, s.Me)...)
	auth.Post("/refresh", with(session, s.Refresh)...)
	auth.Post("/password", with(session, s.ChangePassword)...)
	auth.Post("/totp/setup", with(session, s.TOTPSetup)...)
	auth.Post("/totp/enable", with(session, s.TOTPEnable)...)
	auth.Post("/totp/disable", with(session, s.TOTPDisable)...)

	r.Get("/posts", with(editor, s.ListPosts)...)
	r.Post("/posts", with(editor, s.CreatePost)...)
	r.Get("/posts/:id", with(editor, s.GetPost)...)
	r.Put("/posts/:id", with(editor, s.UpdatePost)...)
	r.Delete("/posts/:id", with(editor, s.DeletePost)...)
	r.Post("/posts/:id/publish", with(editor, s.PublishPost)...)
	r.Post("/posts/:id/unpublish", with(editor, s.UnpublishPost)...)

	r.Get("/categories", with(editor, s.ListCategories)...)
	r.Post("/categories", with(editor, s.CreateCategory)...)
	r.Put("/categories/:id", with(editor, s.UpdateCategory)...)
	r.Delete("/categories/:id", with(editor, s.DeleteCategory)...)

	r.Get("/projects", with(editor, s.ListProjects)...)
	r.Post("/projects", with(editor, s.CreateProject)...)
	r.Put("/projects/order", with(editor, s.ReorderProjects)...)
	r.Get("/projects/:id", with(editor, s.GetProject)...)
	r.Put("/projects/:id", with(editor, s.UpdateProject)...)
	r.Delete("/projects/:id", with(editor, s.DeleteProject)...)

	r.Get("/contacts", with(editor, s.ListContacts)...)
	r.Get("/contacts/:id", with(editor, s.GetContact)...)
	r.Patch("/contacts/:id", with(editor, s.UpdateContact)...)
	r.Delete("/contacts/:id", with(editor, s.DeleteContact)...)

	r.Get("/stats", with(editor, s.Stats)...)

	r.Get("/users", with(admin, s.ListUsers)...)
	r.Post("/users", with(admin, s.CreateUser)...)
	r.Put("/users/:id", with(admin, s.UpdateUser)...)
	r.Delete("/users/:id", with(admin, s.DeleteUser)...)
	r.Delete("/users/:id/totp", with(admin, s.ResetUserTOTP)...)

	r.Get("/settings", with(admin, s.ListSettings)...)
	r.Put("/settings", with(admin, s.UpdateSettings)...)
}
