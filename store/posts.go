package store

import (
	"context"
	"strings"

	"github.com/adonese/folio/cms_fields"
	"github.com/jmoiron/sqlx"
)

const postColumns = `p.id, p.title, p.slug, p.excerpt, p.content, p.cover_image, p.category_id, p.tags, p.status,
	p.published_at, p.author_id, p.reading_minutes, p.created_at, p.updated_at,
	COALESCE(c.name, '') AS category_name, COALESCE(c.slug, '') AS category_slug, COALESCE(u.name, '') AS author_name`

const postFrom = ` FROM posts p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN users u ON u.id = p.author_id`

// PostFilter narrows a post listing. PublishedOnly hides drafts and scheduled posts.
type PostFilter struct {
	PublishedOnly bool
	Status        string
	CategorySlug  string
	Tag           string
	Query         string
}

func (s *Store) postWhere(f PostFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.PublishedOnly {
		clauses = append(clauses, "p.status = ? AND p.published_at IS NOT NULL AND p.published_at <= ?")
		args = append(args, cms_fields.PostPublished, s.Now())
	} else if f.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.CategorySlug != "" {
		clauses = append(clauses, "c.slug = ?")
		args = append(args, f.CategorySlug)
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		clauses = append(clauses, `p.tags LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(`"`+tag+`"`))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, `(LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.excerpt) LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(q), likePattern(q))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CreatePost derives the post's computed columns and stores it. A taken slug gets a
// numeric suffix instead of failing, also when another request takes it concurrently.
func (s *Store) CreatePost(ctx context.Context, post *cms_fields.Post) error {
	if _, err := s.ensureDB(); err != nil {
		return err
	}
	now := s.Now()
	post.Prepare(now)

	base := post.Slug
	stmt := s.DB.Rebind(`INSERT INTO posts(title, slug, excerpt, content, cover_image, category_id, tags, status,
		published_at, author_id, reading_minutes, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.insertWithFreeSlug(ctx, "posts", base, func(tx *sqlx.Tx, slug string) error {
		post.Slug = slug
		return tx.GetContext(ctx, &post.ID, stmt,
			post.Title,
			post.Slug,
			post.Excerpt,
			post.Content,
			post.CoverImage,
			post.CategoryID,
			post.Tags,
			post.Status,
			post.PublishedAt,
			post.AuthorID,
			post.ReadingMinutes,
			now,
			now,
		)
	})
	if err != nil {
		return err
	}
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

// UpdatePost writes every editable column. A slug clash is reported as a unique violation.
func (s *Store) UpdatePost(ctx context.Context, post *cms_fields.Post) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	now := s.Now()
	post.Prepare(now)
	stmt := s.DB.Rebind(`UPDATE posts SET title = ?, slug = ?, excerpt = ?, content = ?, cover_image = ?, category_id = ?,
		tags = ?, status = ?, published_at = ?, reading_minutes = ?, updated_at = ? WHERE id = ?`)
	res, err := db.ExecContext(ctx, stmt,
		post.Title,
		post.Slug,
		post.Excerpt,
		post.Content,
		post.CoverImage,
		post.CategoryID,
		post.Tags,
		post.Status,
		post.PublishedAt,
		post.ReadingMinutes,
		now,
		post.ID,
	)
	if err := affected(res, err); err != nil {
		return err
	}
	post.UpdatedAt = now
	return nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (*cms_fields.Post, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var post cms_fields.Post
	if err := db.GetContext(ctx, &post, s.DB.Rebind("SELECT "+postColumns+postFrom+" WHERE p.id = ?"), id); err != nil {
		return nil, err
	}
	post.Hydrate()
	return &post, nil
}

// GetPublishedPost finds a post the public may read; drafts and scheduled posts are not found.
func (s *Store) GetPublishedPost(ctx context.Context, slug string) (*cms_fields.Post, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	where, args := s.postWhere(PostFilter{PublishedOnly: true})
	args = append(args, slug)
	var post cms_fields.Post
	if err := db.GetContext(ctx, &post, s.DB.Rebind("SELECT "+postColumns+postFrom+where+" AND p.slug = ?"), args...); err != nil {
		return nil, err
	}
	post.Hydrate()
	return &post, nil
}

// ListPosts returns one page, newest first, and the total matching the filter.
func (s *Store) ListPosts(ctx context.Context, f PostFilter, page cms_fields.Pagination) ([]cms_fields.Post, int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, 0, err
	}
	where, args := s.postWhere(f)
	var total int
	if err := db.GetContext(ctx, &total, s.DB.Rebind("SELECT COUNT(*)"+postFrom+where), args...); err != nil {
		return nil, 0, err
	}
	posts := []cms_fields.Post{}
	stmt := s.DB.Rebind("SELECT " + postColumns + postFrom + where +
		" ORDER BY COALESCE(p.published_at, p.created_at) DESC, p.id DESC LIMIT ? OFFSET ?")
	args = append(args, page.PerPage, page.Offset())
	if err := db.SelectContext(ctx, &posts, stmt, args...); err != nil {
		return nil, 0, err
	}
	for i := range posts {
		posts[i].Hydrate()
	}
	return posts, total, nil
}

// SetPostStatus publishes or unpublishes a post. The first publish date is kept across
// unpublish and republish.
func (s *Store) SetPostStatus(ctx context.Context, id int64, status string) (*cms_fields.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Status = status
	if err := s.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("DELETE FROM posts WHERE id = ?"), id)
	return affected(res, err)
}

// CountPostsByStatus returns draft and published counts.
func (s *Store) CountPostsByStatus(ctx context.Context) (map[string]int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT status, COUNT(*) AS count FROM posts GROUP BY status"); err != nil {
		return nil, err
	}
	counts := map[string]int{cms_fields.PostDraft: 0, cms_fields.PostPublished: 0}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
