package cms_fields

import "time"

// Project is a portfolio entry.
type Project struct {
	ID        int64      `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Slug      string     `json:"slug" db:"slug"`
	Summary   string     `json:"summary" db:"summary"`
	Content   string     `json:"content,omitempty" db:"content"`
	TechStack StringList `json:"tech_stack" db:"tech_stack"`
	RepoURL   string     `json:"repo_url,omitempty" db:"repo_url"`
	LiveURL   string     `json:"live_url,omitempty" db:"live_url"`
	ImageURL  string     `json:"image_url,omitempty" db:"image_url"`
	Featured  bool       `json:"featured" db:"featured"`
	SortOrder int        `json:"sort_order" db:"sort_order"`
	Published bool       `json:"published" db:"published"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type ProjectRequest struct {
	Title     string   `json:"title" binding:"required,max=200"`
	Slug      string   `json:"slug" binding:"omitempty,slug"`
	Summary   string   `json:"summary" binding:"max=500"`
	Content   string   `json:"content"`
	TechStack []string `json:"tech_stack" binding:"max=30,dive,max=40"`
	RepoURL   string   `json:"repo_url" binding:"omitempty,url"`
	LiveURL   string   `json:"live_url" binding:"omitempty,url"`
	ImageURL  string   `json:"image_url" binding:"omitempty,url"`
	Featured  bool     `json:"featured"`
	SortOrder int      `json:"sort_order"`
	Published bool     `json:"published"`
}

func (r ProjectRequest) Apply(p *Project) {
	p.Title = r.Title
	p.Slug = r.Slug
	if p.Slug == "" {
		p.Slug = Slugify(r.Title)
	}
	p.Summary = r.Summary
	p.Content = r.Content
	p.TechStack = CleanList(r.TechStack)
	p.RepoURL = r.RepoURL
	p.LiveURL = r.LiveURL
	p.ImageURL = r.ImageURL
	p.Featured = r.Featured
	p.SortOrder = r.SortOrder
	p.Published = r.Published
}

// ReorderRequest lists project ids in their new display order.
type ReorderRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,dive,gt=0"`
}
