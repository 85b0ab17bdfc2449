package dashboard

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
)

const maxSettingValue = 2000

var settingKey = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ListSettings returns every row with its public flag.
func (s *Service) ListSettings(c *fiber.Ctx) error {
	settings, err := s.Store.ListSettings(c.UserContext())
	if err != nil {
		return s.dbError(err, "list settings")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": settings})
}

// UpdateSettings upserts a key to value map. Unknown keys are accepted and kept private.
func (s *Service) UpdateSettings(c *fiber.Ctx) error {
	var values map[string]string
	if err := gateway.ParseJSON(c, &values); err != nil {
		return err
	}
	if len(values) == 0 {
		return apperr.WithMessage(apperr.ErrBadRequest, "no settings given")
	}
	if fields := validateSettings(values); len(fields) > 0 {
		return apperr.WithFields(apperr.ErrValidation, fields)
	}
	ctx := c.UserContext()
	if err := s.Store.UpsertSettings(ctx, values); err != nil {
		return s.dbError(err, "update settings")
	}
	settings, err := s.Store.ListSettings(ctx)
	if err != nil {
		return s.dbError(err, "list settings")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": settings})
}

func validateSettings(values map[string]string) map[string]any {
	fields := map[string]any{}
	for key, value := range values {
		if !settingKey.MatchString(key) {
			fields[key] = "key must be lower-case letters, digits and underscores"
			continue
		}
		if len(value) > maxSettingValue {
			fields[key] = fmt.Sprintf("must be at most %d characters", maxSettingValue)
			continue
		}
		switch key {
		case cms_fields.SettingPostsPerPage:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > cms_fields.MaxPerPage {
				fields[key] = fmt.Sprintf("must be a whole number between 1 and %d", cms_fields.MaxPerPage)
			}
		case cms_fields.SettingAnalyticsEnabled, cms_fields.SettingContactEnabled:
			if _, err := strconv.ParseBool(value); err != nil {
				fields[key] = "must be true or false"
			}
		case cms_fields.SettingContactEmail:
			if value != "" && cms_fields.Validator().Var(strings.TrimSpace(value), "email") != nil {
				fields[key] = "must be a valid email"
			}
		}
	}
	return fields
}
