package dashboard

import (
	"time"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// setSession hands the token back in the body's companion header and as an HttpOnly cookie.
func (s *Service) setSession(c *fiber.Ctx, token string) {
	c.Set(fiber.HeaderAuthorization, token)
	c.Cookie(&fiber.Cookie{
		Name:     gateway.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.Auth.TTL),
		HTTPOnly: true,
		Secure:   s.FolioConfig.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Service) clearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     gateway.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.FolioConfig.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// notFound turns a missing row into a 404 naming what was missing; other errors are logged
// as database failures.
func (s *Service) notFound(err error, what string) error {
	if store.ErrNotFound(err) {
		return apperr.Wrap(err, apperr.ErrNotFound, what+" not found")
	}
	return s.dbError(err, what)
}

// dbError logs a store failure. Unique violations pass through so the error handler answers 409.
func (s *Service) dbError(err error, details string) error {
	if store.IsUniqueViolation(err) {
		return apperr.Wrap(err, apperr.ErrConflict, details+": already exists")
	}
	s.Logger.WithFields(logrus.Fields{
		"error":   err.Error(),
		"details": details,
	}).Error("error in database")
	return apperr.Wrap(err, apperr.ErrDatabase, "")
}

func deleted(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": "ok"})
}
