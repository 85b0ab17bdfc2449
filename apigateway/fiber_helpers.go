package gateway

import (
	"strconv"

	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// ParseJSON decodes the request body into dst without validating it.
func ParseJSON(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return apperr.ErrEmptyBody
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return apperr.Wrap(err, apperr.ErrBadRequest, "malformed json body")
	}
	return nil
}

// BindJSON decodes and validates the request body against its binding tags.
func BindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := ParseJSON(c, dst); err != nil {
		return err
	}
	if err := cms_fields.ValidateStruct(dst); err != nil {
		return apperr.WithFields(apperr.ErrValidation, cms_fields.ValidationDetails(err))
	}
	return nil
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.WithMessage(apperr.ErrBadRequest, "invalid "+name)
	}
	return id, nil
}

// PageFromQuery reads ?page and ?per_page, falling back to def items per page.
func PageFromQuery(c *fiber.Ctx, def int) cms_fields.Pagination {
	return cms_fields.NewPagination(c.QueryInt("page", 1), c.QueryInt("per_page", 0), def)
}
