package gateway

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/adonese/folio/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const metricsNamespace = "folio"

var metricsOnce sync.Once

var (
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	contactsTotal   *prometheus.CounterVec
	pageViewsTotal  *prometheus.CounterVec
	loginsTotal     *prometheus.CounterVec
)

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		log.Printf("prometheus counter register failed: %v", err)
	}
	return c
}

func registerHistogramVec(c *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		log.Printf("prometheus histogram register failed: %v", err)
	}
	return c
}

func initMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = registerCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of requests per route.",
		}, []string{"code", "method", "route"}))

		requestDuration = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}))

		responseSize = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Size of HTTP responses.",
			Buckets:   []float64{100, 500, 1_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
		}, []string{"method", "route"}))

		contactsTotal = registerCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "contact",
			Name:      "messages_total",
			Help:      "Contact form submissions by outcome.",
		}, []string{"result"}))

		pageViewsTotal = registerCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "analytics",
			Name:      "page_views_total",
			Help:      "Page view beacons by outcome.",
		}, []string{"result"}))

		loginsTotal = registerCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Dashboard login attempts by outcome.",
		}, []string{"result"}))
	})
}

// Instrumentation records request count, latency and response size per route template.
func Instrumentation() fiber.Handler {
	initMetrics()
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = apperr.Status(err)
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		} else if r != nil && r.Path == "/" && c.Path() == "/" {
			route = "/"
		}

		method := c.Method()
		requestsTotal.WithLabelValues(strconv.Itoa(status), method, route).Inc()
		requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
		responseSize.WithLabelValues(method, route).Observe(float64(len(c.Response().Body())))
		return err
	}
}

// RecordContact counts a contact submission. result is one of stored, spam, rejected or failed.
func RecordContact(result string) {
	initMetrics()
	contactsTotal.WithLabelValues(result).Inc()
}

func RecordPageView(result string) {
	initMetrics()
	pageViewsTotal.WithLabelValues(result).Inc()
}

func RecordLogin(result string) {
	initMetrics()
	loginsTotal.WithLabelValues(result).Inc()
}
