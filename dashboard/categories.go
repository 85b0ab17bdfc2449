package dashboard

import (
	"net/http"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
)

// ListCategories counts posts of every status, unlike the public listing.
func (s *Service) ListCategories(c *fiber.Ctx) error {
	categories, err := s.Store.ListCategories(c.UserContext(), false)
	if err != nil {
		return s.dbError(err, "list categories")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": categories})
}

func (s *Service) CreateCategory(c *fiber.Ctx) error {
	var req cms_fields.CategoryRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	category := cms_fields.Category{}
	req.Apply(&category)
	if err := s.Store.CreateCategory(c.UserContext(), &category); err != nil {
		return s.dbError(err, "category")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"result": category})
}

func (s *Service) UpdateCategory(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	var req cms_fields.CategoryRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	category, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return s.notFound(err, "category")
	}
	req.Apply(category)
	if err := s.Store.UpdateCategory(ctx, category); err != nil {
		return s.dbError(err, "category")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": category})
}

// DeleteCategory leaves its posts uncategorised.
func (s *Service) DeleteCategory(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Store.DeleteCategory(c.UserContext(), id); err != nil {
		return s.notFound(err, "category")
	}
	return deleted(c)
}
