package gateway

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/adonese/folio/apperr"
	"github.com/adonese/folio/cms_fields"
	"github.com/gofiber/fiber/v2"
)

const headerAdminKey = "X-Admin-Key"

// AdminAuthConfig protects operator endpoints such as /metrics. Scrapers authenticate with
// a static key or basic credentials instead of a dashboard session.
type AdminAuthConfig struct {
	Key      string
	User     string
	Password string
	Debug    bool
}

func AdminAuthFromConfig(cfg cms_fields.FolioConfig) AdminAuthConfig {
	return AdminAuthConfig{
		Key:      cfg.AdminKey,
		User:     cfg.AdminUser,
		Password: cfg.AdminPassword,
		Debug:    cfg.IsDebug,
	}
}

func (a AdminAuthConfig) hasKey() bool   { return a.Key != "" }
func (a AdminAuthConfig) hasBasic() bool { return a.User != "" && a.Password != "" }

func (a AdminAuthConfig) keyMatches(c *fiber.Ctx) bool {
	got := strings.TrimSpace(c.Get(headerAdminKey))
	return a.hasKey() && got != "" && secureEqual(got, a.Key)
}

func (a AdminAuthConfig) basicMatches(c *fiber.Ctx) bool {
	if !a.hasBasic() {
		return false
	}
	user, pass, ok := parseBasicAuth(c.Get(fiber.HeaderAuthorization))
	// evaluate both so a wrong user costs the same as a wrong password
	userOK := secureEqual(user, a.User)
	passOK := secureEqual(pass, a.Password)
	return ok && userOK && passOK
}

// RequireAdmin lets a request through on a matching X-Admin-Key or basic credentials.
// Debug mode disables the check; a guard with neither secret configured answers 503.
func RequireAdmin(cfg AdminAuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch {
		case cfg.Debug, cfg.keyMatches(c), cfg.basicMatches(c):
			return c.Next()
		case !cfg.hasKey() && !cfg.hasBasic():
			return apperr.WithMessage(apperr.ErrUnavailable, "admin auth not configured")
		}
		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="folio"`)
		return apperr.ErrUnauthorized
	}
}

func parseBasicAuth(header string) (user, pass string, ok bool) {
	scheme, encoded, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "basic") {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(raw), ":")
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
