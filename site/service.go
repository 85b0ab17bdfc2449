// Package site serves the public JSON API, the RSS feed and the sitemap.
package site

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adonese/folio/analytics"
	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/adonese/folio/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxUserAgent = 512

// Service holds the dependencies of the public handlers.
type Service struct {
	Store       *store.Store
	Counter     *analytics.Counter
	Notifier    *utils.Notifier
	Redis       *redis.Client
	FolioConfig cms_fields.FolioConfig
	Logger      *logrus.Logger
}

// Routes mounts the public endpoints on r.
func (s *Service) Routes(r fiber.Router) {
	r.Get("/healthz", s.Health)
	r.Get("/feed.xml", s.Feed)
	r.Get("/sitemap.xml", s.Sitemap)

	api := r.Group("/api")
	api.Get("/posts", s.ListPosts)
	api.Get("/posts/:slug", s.GetPost)
	api.Get("/categories", s.ListCategories)
	api.Get("/projects", s.ListProjects)
	api.Get("/projects/:slug", s.GetProject)
	api.Get("/settings", s.PublicSettings)
	api.Post("/contact", gateway.RateLimit(gateway.RateLimitConfig{
		Name:   "contact",
		Max:    s.FolioConfig.Contact.RateLimit,
		Window: time.Duration(s.FolioConfig.Contact.RateWindowSeconds) * time.Second,
		Redis:  s.Redis,
		Logger: s.Logger,
	}), s.CreateContact)
	api.Post("/views", s.RecordView)
}

// Health reports database reachability and the applied migration version.
func (s *Service) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		return apperr.Wrap(err, apperr.ErrUnavailable, "database unreachable")
	}
	version, err := store.MigrationVersion(ctx, s.Store.DB)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrUnavailable, "migrations unreadable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok", "db_version": version})
}

func (s *Service) PublicSettings(c *fiber.Ctx) error {
	settings, err := s.Store.PublicSettings(c.UserContext())
	if err != nil {
		return s.dbError(err, "public settings")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": settings})
}

// settings reads every setting, falling back to the seeded defaults if the table is unreadable.
func (s *Service) settings(ctx context.Context) cms_fields.Settings {
	settings, err := s.Store.AllSettings(ctx)
	if err != nil {
		s.Logger.WithFields(logrus.Fields{"error": err.Error(), "details": "settings"}).Error("error in database")
		settings = cms_fields.Settings{}
		for _, d := range cms_fields.DefaultSettings {
			settings[d.Key] = d.Value
		}
	}
	return settings
}

// notFound turns a missing row into a 404 with a message; any other error is a database error.
func (s *Service) notFound(err error, what string) error {
	if store.ErrNotFound(err) {
		return apperr.Wrap(err, apperr.ErrNotFound, what+" not found")
	}
	return s.dbError(err, what)
}

func (s *Service) dbError(err error, details string) error {
	s.Logger.WithFields(logrus.Fields{"error": err.Error(), "details": details}).Error("error in database")
	return apperr.Wrap(err, apperr.ErrDatabase, "")
}

// baseURL is the configured public origin, or the one the request came in on.
func (s *Service) baseURL(c *fiber.Ctx) string {
	if s.FolioConfig.SiteURL != "" {
		return s.FolioConfig.SiteURL
	}
	return strings.TrimRight(c.BaseURL(), "/")
}

// truncate caps s at n bytes without splitting a character. Invalid sequences from raw
// headers are dropped first.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
