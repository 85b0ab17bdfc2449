package utils

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adonese/folio/cms_fields"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNotifier_ContactReceived(t *testing.T) {
	var got contactEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &Notifier{URL: srv.URL, Logger: quietLogger()}
	err := n.ContactReceived(context.Background(), cms_fields.Contact{ID: 3, Name: "Ada", Email: "ada@example.com", Subject: "Hi", IPHash: "secret"})
	require.NoError(t, err)
	require.Equal(t, "contact.created", got.Event)
	require.Equal(t, "New message from Ada <ada@example.com>: Hi", got.Text)
	require.Equal(t, int64(3), got.Contact.ID)
	require.Empty(t, got.Contact.IPHash)
}

func TestNotifier_failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := &Notifier{URL: srv.URL, Logger: quietLogger()}
	err := n.ContactReceived(context.Background(), cms_fields.Contact{ID: 1})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "502"))

	require.NoError(t, (&Notifier{}).ContactReceived(context.Background(), cms_fields.Contact{}))
	var nilNotifier *Notifier
	require.NoError(t, nilNotifier.ContactReceived(context.Background(), cms_fields.Contact{}))
}

func TestGenerateQR(t *testing.T) {
	png, err := GenerateQR("otpauth://totp/folio:ada@example.com?secret=ABC")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	uri, err := QRDataURI("hello")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestNewRedis_disabled(t *testing.T) {
	client, err := NewRedis(context.Background(), "", "", 0)
	require.NoError(t, err)
	require.Nil(t, client)
}
