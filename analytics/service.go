package analytics

import (
	"context"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const MaxDays = 365

// ViewStore is the part of the store the analytics service reads from.
type ViewStore interface {
	RollupViews(ctx context.Context, from, to time.Time, pageLimit int) (cms_fields.ViewRollup, error)
	CountViewsBetween(ctx context.Context, from, to time.Time) (int, error)
}

// Summary is the dashboard view of one window compared with the window before it.
type Summary struct {
	Stats
	Days          int     `json:"days"`
	PreviousTotal int     `json:"previous_total"`
	ChangePercent float64 `json:"change_percent"`
	Live          *Live   `json:"live,omitempty"`
}

type Service struct {
	Store     ViewStore
	Counter   *Counter
	SiteHosts []string
	TopN      int
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Summary covers the last days days including today. The previous window has the same
// length and ends the day before the current one starts.
func (s *Service) Summary(ctx context.Context, days int) (*Summary, error) {
	if days < 1 {
		days = 1
	}
	if days > MaxDays {
		days = MaxDays
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := day(now())
	from := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)
	prevFrom := from.AddDate(0, 0, -days)

	topN := s.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	var (
		rollup   cms_fields.ViewRollup
		previous int
		live     *Live
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rollup, err = s.Store.RollupViews(gctx, from, end, topN)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.Store.CountViewsBetween(gctx, prevFrom, from)
		return err
	})
	g.Go(func() error {
		l, err := s.Counter.Today(gctx, topN)
		if err != nil {
			// the live counter is best effort
			if s.Logger != nil {
				s.Logger.WithFields(logrus.Fields{"error": err.Error(), "details": "live counter"}).Warn("analytics")
			}
			return nil
		}
		live = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := Summarize(rollup, from, today, topN, s.SiteHosts...)
	return &Summary{
		Stats:         stats,
		Days:          days,
		PreviousTotal: previous,
		ChangePercent: Compare(stats.Total, previous),
		Live:          live,
	}, nil
}
