package dashboard

import (
	"database/sql"
	"net/http"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/gofiber/fiber/v2"
)

// ListPosts pages through posts of any status; ?status narrows to drafts or published.
func (s *Service) ListPosts(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && status != cms_fields.PostDraft && status != cms_fields.PostPublished {
		return apperr.WithFields(apperr.ErrValidation, map[string]any{"status": "must be one of: draft, published"})
	}
	page := gateway.PageFromQuery(c, cms_fields.DefaultPerPage)
	posts, total, err := s.Store.ListPosts(c.UserContext(), store.PostFilter{
		Status:       status,
		CategorySlug: c.Query("category"),
		Tag:          c.Query("tag"),
		Query:        c.Query("q"),
	}, page)
	if err != nil {
		return s.dbError(err, "list posts")
	}
	for i := range posts {
		posts[i].Content = ""
	}
	return c.Status(http.StatusOK).JSON(cms_fields.NewPageResult(posts, total, page))
}

// GetPost returns the post with its rendered preview.
func (s *Service) GetPost(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.Store.GetPost(c.UserContext(), id)
	if err != nil {
		return s.notFound(err, "post")
	}
	if post.ContentHTML, err = cms_fields.RenderMarkdown(post.Content); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": post})
}

func (s *Service) CreatePost(c *fiber.Ctx) error {
	var req cms_fields.PostRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	if err := s.checkCategory(c, req.CategoryID); err != nil {
		return err
	}
	post := cms_fields.Post{}
	req.Apply(&post)
	if uid := gateway.UserIDFromCtx(c); uid != 0 {
		post.AuthorID = sql.NullInt64{Int64: uid, Valid: true}
	}
	if err := s.Store.CreatePost(c.UserContext(), &post); err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.WithFields(apperr.ErrConflict, map[string]any{"slug": "is already used by another post"})
		}
		return s.dbError(err, "create post")
	}
	return s.respondPost(c, http.StatusCreated, post.ID)
}

// UpdatePost replaces the editable fields. An empty slug keeps the current one.
func (s *Service) UpdatePost(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	var req cms_fields.PostRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	if err := s.checkCategory(c, req.CategoryID); err != nil {
		return err
	}
	ctx := c.UserContext()
	post, err := s.Store.GetPost(ctx, id)
	if err != nil {
		return s.notFound(err, "post")
	}
	slug := post.Slug
	req.Apply(post)
	if post.Slug == "" {
		post.Slug = slug
	}
	if err := s.Store.UpdatePost(ctx, post); err != nil {
		if store.IsUniqueViolation(err) {
			return apperr.WithFields(apperr.ErrConflict, map[string]any{"slug": "is already used by another post"})
		}
		return s.notFound(err, "post")
	}
	return s.respondPost(c, http.StatusOK, post.ID)
}

func (s *Service) DeletePost(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Store.DeletePost(c.UserContext(), id); err != nil {
		return s.notFound(err, "post")
	}
	return deleted(c)
}

func (s *Service) PublishPost(c *fiber.Ctx) error {
	return s.setPostStatus(c, cms_fields.PostPublished)
}

// UnpublishPost moves a post back to draft. Its first publish date is kept.
func (s *Service) UnpublishPost(c *fiber.Ctx) error {
	return s.setPostStatus(c, cms_fields.PostDraft)
}

func (s *Service) setPostStatus(c *fiber.Ctx, status string) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.Store.SetPostStatus(c.UserContext(), id, status)
	if err != nil {
		return s.notFound(err, "post")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": post})
}

// respondPost reloads the post so joined columns (category, author) are filled.
func (s *Service) respondPost(c *fiber.Ctx, status int, id int64) error {
	post, err := s.Store.GetPost(c.UserContext(), id)
	if err != nil {
		return s.notFound(err, "post")
	}
	return c.Status(status).JSON(fiber.Map{"result": post})
}

func (s *Service) checkCategory(c *fiber.Ctx, id *int64) error {
	if id == nil || *id <= 0 {
		return nil
	}
	if _, err := s.Store.GetCategory(c.UserContext(), *id); err != nil {
		if store.ErrNotFound(err) {
			return apperr.WithFields(apperr.ErrValidation, map[string]any{"category_id": "unknown category"})
		}
		return s.dbError(err, "check category")
	}
	return nil
}
