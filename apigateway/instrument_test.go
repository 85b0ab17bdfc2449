package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrumentation(t *testing.T) {
	app := newTestApp()
	app.Use(Instrumentation())
	app.Get("/posts/:slug", func(c *fiber.Ctx) error { return c.SendString(c.Params("slug")) })

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("200", "GET", "/posts/:slug"))
	for _, slug := range []string{"a", "b"} {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/"+slug, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("200", "GET", "/posts/:slug"))
	require.Equal(t, before+2, after)

	// a second registration reuses the collectors
	_ = Instrumentation()
	require.Equal(t, after, testutil.ToFloat64(requestsTotal.WithLabelValues("200", "GET", "/posts/:slug")))
}

func TestRecordCounters(t *testing.T) {
	RecordContact("stored")
	RecordContact("stored")
	RecordPageView("bot")
	RecordLogin("ok")

	require.GreaterOrEqual(t, testutil.ToFloat64(contactsTotal.WithLabelValues("stored")), 2.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(pageViewsTotal.WithLabelValues("bot")), 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(loginsTotal.WithLabelValues("ok")), 1.0)
}
