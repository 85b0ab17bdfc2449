package store

import (
	"context"
	"fmt"
	"time"

	"github.com/adonese/folio/cms_fields"
)

func (s *Store) RecordView(ctx context.Context, view *cms_fields.PageView) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if view.CreatedAt.IsZero() {
		view.CreatedAt = s.Now()
	}
	view.CreatedAt = view.CreatedAt.UTC()
	stmt := s.DB.Rebind(`INSERT INTO page_views(path, referrer, visitor_hash, user_agent, created_at)
		VALUES(?, ?, ?, ?, ?) RETURNING id`)
	return db.GetContext(ctx, &view.ID, stmt, view.Path, view.Referrer, view.VisitorHash, view.UserAgent, view.CreatedAt)
}

// ListViewsBetween returns views with from <= created_at < to, oldest first.
func (s *Store) ListViewsBetween(ctx context.Context, from, to time.Time) ([]cms_fields.PageView, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	views := []cms_fields.PageView{}
	stmt := s.DB.Rebind("SELECT * FROM page_views WHERE created_at >= ? AND created_at < ? ORDER BY created_at ASC, id ASC")
	if err := db.SelectContext(ctx, &views, stmt, from.UTC(), to.UTC()); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *Store) CountViewsBetween(ctx context.Context, from, to time.Time) (int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.GetContext(ctx, &n, s.DB.Rebind("SELECT COUNT(*) FROM page_views WHERE created_at >= ? AND created_at < ?"), from.UTC(), to.UTC())
	return n, err
}

// viewDay is the UTC calendar day of created_at. sqlite keeps timestamps as UTC text that
// starts with the date.
func (s *Store) viewDay() string {
	if s.DB.Driver == DriverPostgres {
		return "to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	}
	return "substr(created_at, 1, 10)"
}

// RollupViews counts the views with from <= created_at < to per day, per page (top
// pageLimit) and per referrer without loading the rows.
func (s *Store) RollupViews(ctx context.Context, from, to time.Time, pageLimit int) (cms_fields.ViewRollup, error) {
	rollup := cms_fields.ViewRollup{
		Days:      []cms_fields.ViewDay{},
		Pages:     []cms_fields.ViewCount{},
		Referrers: []cms_fields.ViewCount{},
	}
	db, err := s.ensureDB()
	if err != nil {
		return rollup, err
	}
	if pageLimit <= 0 {
		pageLimit = 10
	}
	const window = " FROM page_views WHERE created_at >= ? AND created_at < ?"
	args := []any{from.UTC(), to.UTC()}

	daily := fmt.Sprintf("SELECT %s AS day, COUNT(*) AS views, COUNT(DISTINCT NULLIF(visitor_hash, '')) AS visitors%s GROUP BY 1 ORDER BY 1", s.viewDay(), window)
	if err := db.SelectContext(ctx, &rollup.Days, s.DB.Rebind(daily), args...); err != nil {
		return rollup, fmt.Errorf("daily views: %w", err)
	}
	if err := db.GetContext(ctx, &rollup.Visitors, s.DB.Rebind("SELECT COUNT(DISTINCT NULLIF(visitor_hash, ''))"+window), args...); err != nil {
		return rollup, fmt.Errorf("visitors: %w", err)
	}
	pages := "SELECT path AS label, COUNT(*) AS n" + window + " GROUP BY path ORDER BY n DESC, path ASC LIMIT ?"
	if err := db.SelectContext(ctx, &rollup.Pages, s.DB.Rebind(pages), append(args, pageLimit)...); err != nil {
		return rollup, fmt.Errorf("top pages: %w", err)
	}
	referrers := "SELECT referrer AS label, COUNT(*) AS n" + window + " GROUP BY referrer"
	if err := db.SelectContext(ctx, &rollup.Referrers, s.DB.Rebind(referrers), args...); err != nil {
		return rollup, fmt.Errorf("referrers: %w", err)
	}
	return rollup, nil
}
