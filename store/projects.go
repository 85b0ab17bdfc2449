package store

import (
	"context"

	"github.com/adonese/folio/cms_fields"
	"github.com/jmoiron/sqlx"
)

const projectOrder = " ORDER BY featured DESC, sort_order ASC, created_at DESC, id DESC"

func (s *Store) CreateProject(ctx context.Context, p *cms_fields.Project) error {
	if _, err := s.ensureDB(); err != nil {
		return err
	}
	if p.Slug == "" {
		p.Slug = cms_fields.Slugify(p.Title)
	}
	if p.TechStack == nil {
		p.TechStack = cms_fields.StringList{}
	}
	now := s.Now()
	stmt := s.DB.Rebind(`INSERT INTO projects(title, slug, summary, content, tech_stack, repo_url, live_url, image_url,
		featured, sort_order, published, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.insertWithFreeSlug(ctx, "projects", p.Slug, func(tx *sqlx.Tx, slug string) error {
		p.Slug = slug
		return tx.GetContext(ctx, &p.ID, stmt,
			p.Title, p.Slug, p.Summary, p.Content, p.TechStack, p.RepoURL, p.LiveURL, p.ImageURL,
			p.Featured, p.SortOrder, p.Published, now, now,
		)
	})
	if err != nil {
		return err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, p *cms_fields.Project) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if p.TechStack == nil {
		p.TechStack = cms_fields.StringList{}
	}
	now := s.Now()
	stmt := s.DB.Rebind(`UPDATE projects SET title = ?, slug = ?, summary = ?, content = ?, tech_stack = ?, repo_url = ?,
		live_url = ?, image_url = ?, featured = ?, sort_order = ?, published = ?, updated_at = ? WHERE id = ?`)
	res, err := db.ExecContext(ctx, stmt,
		p.Title, p.Slug, p.Summary, p.Content, p.TechStack, p.RepoURL, p.LiveURL, p.ImageURL,
		p.Featured, p.SortOrder, p.Published, now, p.ID,
	)
	if err := affected(res, err); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

func (s *Store) GetProject(ctx context.Context, id int64) (*cms_fields.Project, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var p cms_fields.Project
	if err := db.GetContext(ctx, &p, s.DB.Rebind("SELECT * FROM projects WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectBySlug finds a project; publishedOnly hides unpublished ones.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string, publishedOnly bool) (*cms_fields.Project, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	q := "SELECT * FROM projects WHERE slug = ?"
	args := []any{slug}
	if publishedOnly {
		q += " AND published = ?"
		args = append(args, true)
	}
	var p cms_fields.Project
	if err := db.GetContext(ctx, &p, s.DB.Rebind(q), args...); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
}

// ListProjects returns featured projects first, then by sort order, then newest.
func (s *Store) ListProjects(ctx context.Context, f ProjectFilter) ([]cms_fields.Project, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	q := "SELECT * FROM projects WHERE 1 = 1"
	var args []any
	if f.PublishedOnly {
		q += " AND published = ?"
		args = append(args, true)
	}
	if f.FeaturedOnly {
		q += " AND featured = ?"
		args = append(args, true)
	}
	projects := []cms_fields.Project{}
	if err := db.SelectContext(ctx, &projects, s.DB.Rebind(q+projectOrder), args...); err != nil {
		return nil, err
	}
	return projects, nil
}

// ReorderProjects sets sort_order to each id's position in ids. Unknown ids fail the whole batch.
func (s *Store) ReorderProjects(ctx context.Context, ids []int64) error {
	if _, err := s.ensureDB(); err != nil {
		return err
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := s.Now()
	stmt := s.DB.Rebind("UPDATE projects SET sort_order = ?, updated_at = ? WHERE id = ?")
	for i, id := range ids {
		res, err := tx.ExecContext(ctx, stmt, i, now, id)
		if err := affected(res, err); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("DELETE FROM projects WHERE id = ?"), id)
	return affected(res, err)
}

func (s *Store) CountProjects(ctx context.Context) (int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.GetContext(ctx, &n, "SELECT COUNT(*) FROM projects")
	return n, err
}
