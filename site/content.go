package site

import (
	"net/http"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
)

// ListPosts pages through published posts. Bodies are left out of the listing.
func (s *Service) ListPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	perPage := s.settings(ctx).Int(cms_fields.SettingPostsPerPage, 10)
	page := gateway.PageFromQuery(c, perPage)
	filter := store.PostFilter{
		PublishedOnly: true,
		CategorySlug:  c.Query("category"),
		Tag:           c.Query("tag"),
		Query:         c.Query("q"),
	}
	posts, total, err := s.Store.ListPosts(ctx, filter, page)
	if err != nil {
		return s.dbError(err, "list posts")
	}
	for i := range posts {
		posts[i].Content = ""
	}
	return c.Status(http.StatusOK).JSON(cms_fields.NewPageResult(posts, total, page))
}

func (s *Service) GetPost(c *fiber.Ctx) error {
	post, err := s.Store.GetPublishedPost(c.UserContext(), c.Params("slug"))
	if err != nil {
		return s.notFound(err, "post")
	}
	html, err := cms_fields.RenderMarkdown(post.Content)
	if err != nil {
		return err
	}
	post.ContentHTML = html
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": post})
}

func (s *Service) ListCategories(c *fiber.Ctx) error {
	categories, err := s.Store.ListCategories(c.UserContext(), true)
	if err != nil {
		return s.dbError(err, "list categories")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": categories})
}

// ListProjects returns published projects; ?featured=true keeps only featured ones.
func (s *Service) ListProjects(c *fiber.Ctx) error {
	projects, err := s.Store.ListProjects(c.UserContext(), store.ProjectFilter{
		PublishedOnly: true,
		FeaturedOnly:  c.QueryBool("featured"),
	})
	if err != nil {
		return s.dbError(err, "list projects")
	}
	for i := range projects {
		projects[i].Content = ""
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": projects})
}

func (s *Service) GetProject(c *fiber.Ctx) error {
	project, err := s.Store.GetProjectBySlug(c.UserContext(), c.Params("slug"), true)
	if err != nil {
		return s.notFound(err, "project")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": project})
}
