package gateway

import (
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/adonese/folio/apigateway"

// fiberCarrier reads request headers and writes response headers for the otel propagator.
type fiberCarrier struct {
	c *fiber.Ctx
}

func (f fiberCarrier) Get(key string) string { return f.c.Get(key) }

func (f fiberCarrier) Set(key, value string) { f.c.Set(key, value) }

func (f fiberCarrier) Keys() []string {
	var keys []string
	f.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// Tracing starts a server span per request, continuing any incoming traceparent. The span
// context is put on c.UserContext() so store calls made by handlers join the trace.
func Tracing() fiber.Handler {
	tracer := otel.Tracer(tracerName)
	return func(c *fiber.Ctx) error {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(c.UserContext(), fiberCarrier{c: c})
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("request.id", RequestIDFromCtx(c)),
			),
		)
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = Normalize(err).Status
			span.RecordError(err)
		}
		if route := c.Route(); route != nil && route.Path != "" {
			span.SetName(c.Method() + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
		propagator.Inject(ctx, fiberCarrier{c: c})
		return err
	}
}
