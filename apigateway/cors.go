package gateway

import (
	"strings"

	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Cors allows the configured origins. With none configured every origin is allowed and
// credentials are never sent.
func Cors(cfg cms_fields.CorsConfig) fiber.Handler {
	origins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.AllowedOrigins, ",")
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    RequestIDHeader,
		AllowCredentials: cfg.AllowCredentials && origins != "*",
		MaxAge:           600,
	})
}
