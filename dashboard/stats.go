package dashboard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/adonese/folio/analytics"
	"github.com/adonese/folio/apperr"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const defaultStatsDays = 30

type statsResult struct {
	Analytics *analytics.Summary `json:"analytics"`
	Posts     map[string]int     `json:"posts"`
	Projects  int                `json:"projects"`
	Contacts  map[string]int     `json:"contacts"`
}

// Stats is the dashboard home: traffic for the last ?days days next to content counts.
func (s *Service) Stats(c *fiber.Ctx) error {
	days := defaultStatsDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > analytics.MaxDays {
			return apperr.WithFields(apperr.ErrValidation, map[string]any{
				"days": fmt.Sprintf("must be a whole number between 1 and %d", analytics.MaxDays),
			})
		}
		days = n
	}

	var out statsResult
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		var err error
		out.Analytics, err = s.Analytics.Summary(ctx, days)
		return err
	})
	g.Go(func() error {
		var err error
		out.Posts, err = s.Store.CountPostsByStatus(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Projects, err = s.Store.CountProjects(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Contacts, err = s.Store.CountContactsByStatus(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.dbError(err, "stats")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": out})
}
