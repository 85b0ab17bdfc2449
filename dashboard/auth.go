package dashboard

import (
	"net/http"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/adonese/folio/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
)

const totpIssuer = "folio"

// a valid bcrypt hash compared against when the email is unknown, so both failures cost the same
var dummyUser = func() cms_fields.User {
	var u cms_fields.User
	_ = u.HashPassword("not-a-real-password")
	return u
}()

// Login checks email and password, then the TOTP code when two-factor is on.
func (s *Service) Login(c *fiber.Ctx) error {
	var req cms_fields.LoginRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()

	user, err := s.Store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !store.ErrNotFound(err) {
			return s.dbError(err, "login")
		}
		dummyUser.CheckPassword(req.Password)
		gateway.RecordLogin("invalid_credentials")
		return apperr.ErrInvalidCredentials
	}
	if !user.CheckPassword(req.Password) {
		gateway.RecordLogin("invalid_credentials")
		s.Logger.WithField("user_id", user.ID).Warn("wrong password entered")
		return apperr.ErrInvalidCredentials
	}
	if user.TOTPEnabled {
		if req.Code == "" {
			gateway.RecordLogin("totp_required")
			return apperr.ErrTOTPRequired
		}
		if err := s.checkTOTP(user, req.Code); err != nil {
			gateway.RecordLogin("invalid_totp")
			return err
		}
	}

	token, err := s.Auth.GenerateJWT(*user)
	if err != nil {
		return err
	}
	if err := s.Store.TouchLogin(ctx, user.ID); err != nil {
		s.Logger.WithFields(logrus.Fields{"error": err.Error(), "user_id": user.ID}).Warn("touch login")
	}
	gateway.RecordLogin("ok")
	s.setSession(c, token)
	return c.Status(http.StatusOK).JSON(fiber.Map{"authorization": token, "user": user})
}

func (s *Service) Logout(c *fiber.Ctx) error {
	s.clearSession(c)
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": "ok"})
}

const localSessionUser = "session_user"

// sessionUser runs after the token check and loads the account behind it. A deleted account
// ends the session; role changes apply on the next request instead of at token expiry.
func (s *Service) sessionUser(c *fiber.Ctx) error {
	user, err := s.Store.GetUserByID(c.UserContext(), gateway.UserIDFromCtx(c))
	if err != nil {
		if store.ErrNotFound(err) {
			return apperr.ErrSessionExpired
		}
		return s.dbError(err, "session user")
	}
	gateway.BindSession(c, user.ID, user.Email, user.Role)
	c.Locals(localSessionUser, user)
	return c.Next()
}

// currentUser is the account loaded by sessionUser.
func (s *Service) currentUser(c *fiber.Ctx) (*cms_fields.User, error) {
	if user, ok := c.Locals(localSessionUser).(*cms_fields.User); ok {
		return user, nil
	}
	return nil, apperr.ErrUnauthorized
}

func (s *Service) Me(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": user})
}

// Refresh issues a fresh token from the stored user, so role changes take effect.
func (s *Service) Refresh(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	token, err := s.Auth.GenerateJWT(*user)
	if err != nil {
		return err
	}
	s.setSession(c, token)
	return c.Status(http.StatusOK).JSON(fiber.Map{"authorization": token})
}

func (s *Service) ChangePassword(c *fiber.Ctx) error {
	var req cms_fields.ChangePasswordRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if !user.CheckPassword(req.OldPassword) {
		return apperr.WithMessage(apperr.ErrInvalidCredentials, "wrong password entered")
	}
	if err := checkPassword(req.NewPassword, "new_password"); err != nil {
		return err
	}
	if err := user.HashPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.Store.UpdatePassword(c.UserContext(), user.ID, user.Password); err != nil {
		return s.dbError(err, "update password")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": "ok"})
}

// TOTPSetup generates a new secret and stores it disabled until a code proves the
// authenticator app has it.
func (s *Service) TOTPSetup(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return apperr.WithMessage(apperr.ErrConflict, "two-factor is already enabled")
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: user.Email})
	if err != nil {
		return err
	}
	qr, err := utils.QRDataURI(key.URL())
	if err != nil {
		return err
	}
	if err := s.Store.SetTOTP(c.UserContext(), user.ID, key.Secret(), false); err != nil {
		return s.dbError(err, "totp setup")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"secret": key.Secret(), "url": key.URL(), "qr": qr})
}

func (s *Service) TOTPEnable(c *fiber.Ctx) error {
	var req cms_fields.TOTPRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return apperr.WithMessage(apperr.ErrConflict, "two-factor is already enabled")
	}
	if user.TOTPSecret == "" {
		return apperr.WithMessage(apperr.ErrBadRequest, "run two-factor setup first")
	}
	if !totp.Validate(req.Code, user.TOTPSecret) {
		return apperr.ErrInvalidTOTP
	}
	if err := s.Store.SetTOTP(c.UserContext(), user.ID, user.TOTPSecret, true); err != nil {
		return s.dbError(err, "totp enable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": "ok"})
}

func (s *Service) TOTPDisable(c *fiber.Ctx) error {
	var req cms_fields.TOTPRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return apperr.WithMessage(apperr.ErrBadRequest, "two-factor is not enabled")
	}
	if err := s.checkTOTP(user, req.Code); err != nil {
		return err
	}
	if err := s.Store.SetTOTP(c.UserContext(), user.ID, "", false); err != nil {
		return s.dbError(err, "totp disable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": "ok"})
}

// checkTOTP validates code against the user's secret. An enabled account whose secret could
// not be unsealed (data_key changed or missing) never passes: the HMAC of an empty key is
// computable by anyone.
func (s *Service) checkTOTP(user *cms_fields.User, code string) error {
	if user.TOTPSecret == "" {
		s.Logger.WithField("user_id", user.ID).Error("two-factor secret unreadable, check data_key")
		return apperr.WithMessage(apperr.ErrInvalidTOTP, "two-factor secret unavailable, ask an admin to reset it")
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.ErrInvalidTOTP
	}
	return nil
}

// checkPassword applies the strength rule and reports a failure against field.
func checkPassword(password, field string) error {
	if len(password) > 72 || !cms_fields.ValidatePassword(password) {
		return apperr.WithFields(apperr.ErrValidation, map[string]any{
			field: "must be 8 to 72 characters with an upper-case letter, a digit and a symbol",
		})
	}
	return nil
}
