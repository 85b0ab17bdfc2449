package gateway

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders every error returned by a handler as {"code", "message", "fields"}.
// Server side failures are logged and their details withheld from the caller.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := Normalize(err)
		status := apperr.Status(appErr)
		if status >= http.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"request_id": RequestIDFromCtx(c),
				"path":       c.Path(),
				"code":       appErr.Code,
			}).WithError(err).Error("request failed")
		}
		if status == http.StatusInternalServerError {
			appErr = apperr.WithMessage(appErr, "internal server error")
		}
		return c.Status(status).JSON(apperr.Payload(appErr))
	}
}

// Normalize maps library errors onto application errors.
func Normalize(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fiberError(fe)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperr.WithFields(apperr.ErrValidation, cms_fields.ValidationDetails(err))
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.Wrap(err, apperr.ErrNotFound, "not found")
	case store.IsUniqueViolation(err):
		return apperr.Wrap(err, apperr.ErrConflict, "already exists")
	}
	return apperr.Wrap(err, apperr.ErrInternal, "")
}

func fiberError(fe *fiber.Error) *apperr.Error {
	var base *apperr.Error
	switch fe.Code {
	case http.StatusNotFound:
		base = apperr.ErrNotFound
	case http.StatusUnauthorized:
		base = apperr.ErrUnauthorized
	case http.StatusForbidden:
		base = apperr.ErrForbidden
	case http.StatusTooManyRequests:
		base = apperr.ErrRateLimited
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		base = apperr.New("bad_request", fe.Code, "")
	case http.StatusMethodNotAllowed:
		base = apperr.New("method_not_allowed", fe.Code, "")
	default:
		base = apperr.New("http_error", fe.Code, "")
	}
	return apperr.Wrap(fe, base, fe.Message)
}
