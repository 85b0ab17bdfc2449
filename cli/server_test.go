package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	gateway "github.com/adonese/folio/apigateway"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "metrics-key"

func newTestEngine(t *testing.T) *fiber.App {
	t.Helper()
	cfg, err := decodeConfig(nil, nil)
	require.NoError(t, err)
	cfg.DatabasePath = filepath.Join(t.TempDir(), "folio.db")
	cfg.AdminKey = testAdminKey
	cfg.SiteURL = "https://example.com"

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv, err := newServer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv.GetMainEngine()
}

func TestGetMainEngine_routes(t *testing.T) {
	app := newTestEngine(t)

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		status int
		code   string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{name: "public posts", method: http.MethodGet, path: "/api/posts", status: http.StatusOK},
		{name: "public settings", method: http.MethodGet, path: "/api/settings", status: http.StatusOK},
		{name: "feed", method: http.MethodGet, path: "/feed.xml", status: http.StatusOK},
		{name: "admin needs a session", method: http.MethodGet, path: "/api/admin/posts", status: http.StatusUnauthorized},
		{name: "me needs a session", method: http.MethodGet, path: "/api/admin/auth/me", status: http.StatusUnauthorized},
		{name: "metrics without key", method: http.MethodGet, path: "/metrics", status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "metrics with key", method: http.MethodGet, path: "/metrics", header: map[string]string{"X-Admin-Key": testAdminKey}, status: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/nope", status: http.StatusNotFound, code: "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.status, resp.StatusCode)
			require.NotEmpty(t, resp.Header.Get(gateway.RequestIDHeader))
			if tt.code != "" {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				require.Equal(t, tt.code, body["code"])
			}
		})
	}
}

func TestGetMainEngine_metricsExposeRequests(t *testing.T) {
	app := newTestEngine(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `folio_http_requests_total{code="200",method="GET",route="/api/posts"}`)
}

func Test_siteHosts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"https://example.com", []string{"example.com"}},
		{"https://blog.example.com:8443/base", []string{"blog.example.com"}},
		{"::not a url", nil},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, siteHosts(tt.in), tt.in)
	}
}
