// Package utils holds small outbound helpers: the contact webhook, QR codes and the redis client.
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// Notifier posts new contact messages to a webhook (Slack, Discord, ntfy and the like all
// accept a JSON body with a text field).
type Notifier struct {
	URL     string
	Client  *http.Client
	Logger  *logrus.Logger
	SiteURL string
}

type contactEvent struct {
	Event   string             `json:"event"`
	Text    string             `json:"text"`
	Contact cms_fields.Contact `json:"contact"`
}

// ContactReceived sends the contact to the webhook. Without a URL it does nothing.
// Failures are logged and returned; callers usually run it in a goroutine and ignore the result.
func (n *Notifier) ContactReceived(ctx context.Context, contact cms_fields.Contact) error {
	if n == nil || n.URL == "" {
		return nil
	}
	text := fmt.Sprintf("New message from %s <%s>", contact.Name, contact.Email)
	if contact.Subject != "" {
		text += ": " + contact.Subject
	}
	if n.SiteURL != "" {
		text += fmt.Sprintf(" (%s)", n.SiteURL)
	}
	body, err := json.Marshal(contactEvent{Event: "contact.created", Text: text, Contact: contact})
	if err != nil {
		return err
	}

	err = n.post(ctx, body)
	if err != nil && n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"contact_id": contact.ID,
		}).Error("contact webhook failed")
	}
	return err
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
