package dashboard

import (
	"net/http"
	"strings"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type contactPage struct {
	cms_fields.PageResult[cms_fields.Contact]
	Counts map[string]int `json:"counts"`
}

// ListContacts pages through the inbox, newest first, with a count per status for the tabs.
func (s *Service) ListContacts(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !validContactStatus(status) {
		return apperr.WithFields(apperr.ErrValidation, map[string]any{
			"status": "must be one of: " + strings.Join(cms_fields.ContactStatuses, ", "),
		})
	}
	page := gateway.PageFromQuery(c, cms_fields.DefaultPerPage)

	var (
		contacts []cms_fields.Contact
		total    int
		counts   map[string]int
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		var err error
		contacts, total, err = s.Store.ListContacts(ctx, status, page)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.Store.CountContactsByStatus(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.dbError(err, "list contacts")
	}
	return c.Status(http.StatusOK).JSON(contactPage{
		PageResult: cms_fields.NewPageResult(contacts, total, page),
		Counts:     counts,
	})
}

// GetContact returns one message; opening a new message marks it read.
func (s *Service) GetContact(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	contact, err := s.Store.GetContact(ctx, id)
	if err != nil {
		return s.notFound(err, "contact")
	}
	if contact.Status == cms_fields.ContactNew {
		if err := s.Store.MarkContactRead(ctx, id); err != nil {
			return s.dbError(err, "mark contact read")
		}
		contact.Status = cms_fields.ContactRead
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": contact})
}

func (s *Service) UpdateContact(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	var req cms_fields.ContactStatusRequest
	if err := gateway.BindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := s.Store.UpdateContactStatus(ctx, id, req.Status); err != nil {
		return s.notFound(err, "contact")
	}
	contact, err := s.Store.GetContact(ctx, id)
	if err != nil {
		return s.notFound(err, "contact")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": contact})
}

func (s *Service) DeleteContact(c *fiber.Ctx) error {
	id, err := gateway.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Store.DeleteContact(c.UserContext(), id); err != nil {
		return s.notFound(err, "contact")
	}
	return deleted(c)
}

func validContactStatus(status string) bool {
	for _, st := range cms_fields.ContactStatuses {
		if st == status {
			return true
		}
	}
	return false
}
