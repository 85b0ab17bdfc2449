package dashboard

import (
	"net/http"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
)

func (s *Service) ListProjects(c *fiber.Ctx) error {
	projects, err := s.Store.ListProjects(c.UserContext(), store.ProjectFilter{})
	if err != nil {
		return s.dbError(err, "list projects")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": projects})
}

func (s *Service) GetProject(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	project, err := s.Store.GetProject(c.UserContext(), id)
	if err != nil {
		return s.notFound(err, "project")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": project})
}

func (s *Service) CreateProject(c *fiber.Ctx) error {
	var req cms_fields.ProjectRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	project := cms_fields.Project{}
	req.Apply(&project)
	if err := s.Store.CreateProject(c.UserContext(), &project); err != nil {
		return s.dbError(err, "create project")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"result": project})
}

// UpdateProject replaces the editable fields. An empty slug keeps the current one.
func (s *Service) UpdateProject(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	var req cms_fields.ProjectRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	project, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return s.notFound(err, "project")
	}
	slug := project.Slug
	req.Apply(project)
	if req.Slug == "" {
		project.Slug = slug
	}
	if err := s.Store.UpdateProject(ctx, project); err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.WithFields(apperr.ErrConflict, map[string]any{"slug": "is already used by another project"})
		}
		return s.notFound(err, "project")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": project})
}

func (s *Service) DeleteProject(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Store.DeleteProject(c.UserContext(), id); err != nil {
		return s.notFound(err, "project")
	}
	return deleted(c)
}

// ReorderProjects sets sort_order from the position of each id in the list. The whole
// list is applied or none of it.
func (s *Service) ReorderProjects(c *fiber.Ctx) error {
	var req cms_fields.ReorderRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, dup := seen[id]; dup {
			return apperr.WithFields(apperr.ErrValidation, map[string]any{"ids": "must not repeat an id"})
		}
		seen[id] = struct{}{}
	}
	ctx := c.UserContext()
	if err := s.Store.ReorderProjects(ctx, req.IDs); err != nil {
		return s.notFound(err, "project")
	}
	projects, err := s.Store.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return s.dbError(err, "list projects")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": projects})
}
