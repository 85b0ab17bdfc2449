package store

import (
	"context"

	"github.com/adonese/folio/cms_fields"
)

func (s *Store) CreateCategory(ctx context.Context, c *cms_fields.Category) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if c.Slug == "" {
		c.Slug = cms_fields.Slugify(c.Name)
	}
	now := s.Now()
	stmt := s.DB.Rebind("INSERT INTO categories(name, slug, description, created_at) VALUES(?, ?, ?, ?) RETURNING id")
	if err := db.GetContext(ctx, &c.ID, stmt, c.Name, c.Slug, c.Description, now); err != nil {
		return err
	}
	c.CreatedAt = now
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *cms_fields.Category) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if c.Slug == "" {
		c.Slug = cms_fields.Slugify(c.Name)
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("UPDATE categories SET name = ?, slug = ?, description = ? WHERE id = ?"),
		c.Name, c.Slug, c.Description, c.ID)
	return affected(res, err)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*cms_fields.Category, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var c cms_fields.Category
	if err := db.GetContext(ctx, &c, s.DB.Rebind("SELECT id, name, slug, description, created_at FROM categories WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*cms_fields.Category, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var c cms_fields.Category
	if err := db.GetContext(ctx, &c, s.DB.Rebind("SELECT id, name, slug, description, created_at FROM categories WHERE slug = ?"), slug); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns every category by name. With publishedOnly the post count only
// covers posts the public can see.
func (s *Store) ListCategories(ctx context.Context, publishedOnly bool) ([]cms_fields.Category, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	join := "LEFT JOIN posts p ON p.category_id = c.id"
	var args []any
	if publishedOnly {
		join += " AND p.status = ? AND p.published_at IS NOT NULL AND p.published_at <= ?"
		args = append(args, cms_fields.PostPublished, s.Now())
	}
	stmt := s.DB.Rebind(`SELECT c.id, c.name, c.slug, c.description, c.created_at, COUNT(p.id) AS post_count
		FROM categories c ` + join + `
		GROUP BY c.id, c.name, c.slug, c.description, c.created_at
		ORDER BY c.name ASC`)
	categories := []cms_fields.Category{}
	if err := db.SelectContext(ctx, &categories, stmt, args...); err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteCategory removes a category; its posts keep existing without one.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("DELETE FROM categories WHERE id = ?"), id)
	return affected(res, err)
}
