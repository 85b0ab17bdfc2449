package cms_fields

import (
	"database/sql"
	"time"
)

const (
	PostDraft     = "draft"
	PostPublished = "published"

	excerptLength = 160
)

// Post is a blog entry. Content is markdown; ContentHTML is derived on read and never stored.
type Post struct {
	ID             int64         `json:"id" db:"id"`
	Title          string        `json:"title" db:"title"`
	Slug           string        `json:"slug" db:"slug"`
	Excerpt        string        `json:"excerpt" db:"excerpt"`
	Content        string        `json:"content,omitempty" db:"content"`
	ContentHTML    string        `json:"content_html,omitempty" db:"-"`
	CoverImage     string        `json:"cover_image" db:"cover_image"`
	CategoryID     sql.NullInt64 `json:"-" db:"category_id"`
	Category       *Category     `json:"category,omitempty" db:"-"`
	Tags           StringList    `json:"tags" db:"tags"`
	Status         string        `json:"status" db:"status"`
	PublishedAt    sql.NullTime  `json:"-" db:"published_at"`
	AuthorID       sql.NullInt64 `json:"-" db:"author_id"`
	AuthorName     string        `json:"author_name,omitempty" db:"author_name"`
	ReadingMinutes int           `json:"reading_minutes" db:"reading_minutes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`

	CategoryName string `json:"-" db:"category_name"`
	CategorySlug string `json:"-" db:"category_slug"`
}

// PostRequest is the admin create/update payload.
type PostRequest struct {
	Title      string   `json:"title" binding:"required,max=200"`
	Slug       string   `json:"slug" binding:"omitempty,slug"`
	Excerpt    string   `json:"excerpt" binding:"max=500"`
	Content    string   `json:"content" binding:"required"`
	CoverImage string   `json:"cover_image" binding:"omitempty,url"`
	CategoryID *int64   `json:"category_id"`
	Tags       []string `json:"tags" binding:"max=20,dive,max=40"`
	Status     string   `json:"status" binding:"omitempty,oneof=draft published"`
}

// Apply copies the request onto p.
func (r PostRequest) Apply(p *Post) {
	p.Title = r.Title
	p.Slug = r.Slug
	p.Excerpt = r.Excerpt
	p.Content = r.Content
	p.CoverImage = r.CoverImage
	p.CategoryID = sql.NullInt64{}
	if r.CategoryID != nil && *r.CategoryID > 0 {
		p.CategoryID = sql.NullInt64{Int64: *r.CategoryID, Valid: true}
	}
	p.Tags = NormalizeTags(r.Tags)
	if r.Status != "" {
		p.Status = r.Status
	}
}

// Prepare fills the derived columns before a write.
func (p *Post) Prepare(now time.Time) {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Excerpt == "" {
		p.Excerpt = Truncate(PlainText(p.Content), excerptLength)
	}
	if p.Tags == nil {
		p.Tags = StringList{}
	}
	if p.Status == "" {
		p.Status = PostDraft
	}
	p.ReadingMinutes = ReadingMinutes(p.Content)
	if p.Status == PostPublished && !p.PublishedAt.Valid {
		p.PublishedAt = sql.NullTime{Time: now.UTC(), Valid: true}
	}
}

// IsVisible reports whether the public site may show the post at now.
func (p *Post) IsVisible(now time.Time) bool {
	return p.Status == PostPublished && p.PublishedAt.Valid && !p.PublishedAt.Time.After(now)
}

// Hydrate fills the JSON-only fields after a read.
func (p *Post) Hydrate() {
	if p.CategoryID.Valid {
		p.Category = &Category{ID: p.CategoryID.Int64, Name: p.CategoryName, Slug: p.CategorySlug}
	}
	if p.Tags == nil {
		p.Tags = StringList{}
	}
}

// MarshalJSON exposes the nullable columns as plain values.
func (p Post) MarshalJSON() ([]byte, error) {
	type alias Post
	out := struct {
		alias
		CategoryID  *int64     `json:"category_id"`
		PublishedAt *time.Time `json:"published_at"`
	}{alias: alias(p)}
	if p.CategoryID.Valid {
		out.CategoryID = &p.CategoryID.Int64
	}
	if p.PublishedAt.Valid {
		out.PublishedAt = &p.PublishedAt.Time
	}
	return marshal(out)
}

// Category groups posts.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description,omitempty" db:"description"`
	PostCount   int       `json:"post_count" db:"post_count"`
	CreatedAt   time.Time `json:"created_at,omitempty" db:"created_at"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=80"`
	Slug        string `json:"slug" binding:"omitempty,slug"`
	Description string `json:"description" binding:"max=500"`
}

func (r CategoryRequest) Apply(c *Category) {
	c.Name = r.Name
	c.Slug = r.Slug
	if c.Slug == "" {
		c.Slug = Slugify(r.Name)
	}
	c.Description = r.Description
}
