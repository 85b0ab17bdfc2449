package dashboard

import (
	"errors"
	"net/http"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func (s *Service) ListUsers(c *fiber.Ctx) error {
	users, err := s.Store.ListUsers(c.UserContext())
	if err != nil {
		return s.dbError(err, "list users")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": users})
}

func (s *Service) CreateUser(c *fiber.Ctx) error {
	var req cms_fields.UserRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	if err := checkPassword(req.Password, "password"); err != nil {
		return err
	}
	user := cms_fields.User{Email: req.Email, Name: req.Name, Role: req.Role}
	if err := user.HashPassword(req.Password); err != nil {
		return err
	}
	if err := s.Store.CreateUser(c.UserContext(), &user); err != nil {
		return s.userWriteError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"result": user})
}

// UpdateUser changes email, name and role, and the password when one is given.
// The last admin cannot be demoted.
func (s *Service) UpdateUser(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	var req cms_fields.UserRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	if req.Password != "" {
		if err := checkPassword(req.Password, "password"); err != nil {
			return err
		}
	}
	ctx := c.UserContext()
	user, err := s.Store.GetUserByID(ctx, id)
	if err != nil {
		return s.notFound(err, "user")
	}

	user.Email, user.Name, user.Role = req.Email, req.Name, req.Role
	if err := s.Store.UpdateUser(ctx, user); err != nil {
		return s.userWriteError(err)
	}
	if req.Password != "" {
		if err := user.HashPassword(req.Password); err != nil {
			return err
		}
		if err := s.Store.UpdatePassword(ctx, user.ID, user.Password); err != nil {
			return s.dbError(err, "update password")
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": user})
}

// DeleteUser refuses to delete the caller's own account or the last admin.
func (s *Service) DeleteUser(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	if id == gateway.UserIDFromCtx(c) {
		return apperr.WithMessage(apperr.ErrConflict, "you cannot delete your own account")
	}
	if err := s.Store.DeleteUser(c.UserContext(), id); err != nil {
		return s.userWriteError(err)
	}
	return deleted(c)
}

func (s *Service) userWriteError(err error) error {
	if errors.Is(err, store.ErrLastAdmin) {
		return apperr.Wrap(err, apperr.ErrLastAdmin, "")
	}
	if store.IsUniqueViolation(err) {
		return apperr.WithFields(apperr.ErrConflict, map[string]any{"email": "is already registered"})
	}
	return s.notFound(err, "user")
}

// ResetUserTOTP turns two-factor off for a user who lost the authenticator or whose secret
// can no longer be unsealed.
func (s *Service) ResetUserTOTP(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Store.SetTOTP(c.UserContext(), id, "", false); err != nil {
		return s.notFound(err, "user")
	}
	s.Logger.WithFields(logrus.Fields{"user_id": id, "by": gateway.UserIDFromCtx(c)}).Warn("two-factor reset")
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": "ok"})
}
