package site

import (
	"net/http"
	"strings"

	"github.com/adonese/folio/analytics"
	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// RecordView takes a page view beacon from the front end. Anything that should not count
// (analytics off, a bot, an untracked path) is acknowledged with 204 and dropped.
func (s *Service) RecordView(c *fiber.Ctx) error {
	var req cms_fields.PageViewRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		gateway.RecordPageView("rejected")
		return err
	}
	ctx := c.UserContext()

	if !s.settings(ctx).Bool(cms_fields.SettingAnalyticsEnabled, true) {
		gateway.RecordPageView("disabled")
		return c.SendStatus(http.StatusNoContent)
	}
	ua := c.Get(fiber.HeaderUserAgent)
	if analytics.IsBot(ua) {
		gateway.RecordPageView("bot")
		return c.SendStatus(http.StatusNoContent)
	}
	path := analytics.NormalizePath(req.Path)
	if !analytics.ShouldTrack(path) {
		gateway.RecordPageView("ignored")
		return c.SendStatus(http.StatusNoContent)
	}

	now := s.Store.Now()
	view := cms_fields.PageView{
		Path:        path,
		Referrer:    strings.TrimSpace(req.Referrer),
		VisitorHash: s.Store.VisitorHash(c.IP(), ua, now),
		UserAgent:   truncate(ua, maxUserAgent),
		CreatedAt:   now,
	}
	if err := s.Store.RecordView(ctx, &view); err != nil {
		gateway.RecordPageView("failed")
		return s.dbError(err, "record view")
	}
	if err := s.Counter.Incr(ctx, path); err != nil {
		s.Logger.WithFields(logrus.Fields{"error": err.Error(), "details": "live counter"}).Warn("analytics")
	}
	gateway.RecordPageView("recorded")
	return c.SendStatus(http.StatusNoContent)
}
