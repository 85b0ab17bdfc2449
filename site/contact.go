package site

import (
	"context"
	"net/http"
	"strings"
	"time"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 10 * time.Second

// CreateContact stores a message from the contact form and pings the webhook.
// A filled honeypot gets the same success-looking answer as a real message but nothing is stored.
func (s *Service) CreateContact(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if !s.settings(ctx).Bool(cms_fields.SettingContactEnabled, true) {
		gateway.RecordContact("disabled")
		return apperr.WithMessage(apperr.ErrUnavailable, "the contact form is closed")
	}

	var req cms_fields.ContactRequest
	if err := gateway.ParseJSON(c, &req); err != nil {
		gateway.RecordContact("rejected")
		return err
	}
	if strings.TrimSpace(req.Website) != "" {
		gateway.RecordContact("spam")
		s.Logger.WithField("ip_hash", s.Store.HashIP(c.IP())).Info("contact honeypot triggered")
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"result": "ok"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := cms_fields.ValidateStruct(req); err != nil {
		gateway.RecordContact("rejected")
		return apperr.WithFields(apperr.ErrValidation, cms_fields.ValidationDetails(err))
	}

	contact := cms_fields.Contact{
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		UserAgent: truncate(c.Get(fiber.HeaderUserAgent), maxUserAgent),
	}
	if err := s.Store.CreateContact(ctx, &contact, c.IP()); err != nil {
		gateway.RecordContact("failed")
		return s.dbError(err, "create contact")
	}
	gateway.RecordContact("stored")
	s.Logger.WithFields(logrus.Fields{"contact_id": contact.ID}).Info("contact message stored")

	if s.Notifier != nil {
		go func(contact cms_fields.Contact) {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			_ = s.Notifier.ContactReceived(ctx, contact)
		}(contact)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"result": "ok", "id": contact.ID})
}
