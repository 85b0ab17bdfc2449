package cms_fields

import (
	"os"
	"strings"
)

// FolioConfig is the `folio:` section of config.yaml after it is merged with secrets.yaml.
type FolioConfig struct {
	Port    string `json:"port"`
	IsDebug bool   `json:"is_debug"`
	SiteURL string `json:"site_url"`

	DatabasePath   string `json:"db_path"`
	DatabaseURL    string `json:"db_url"`
	DatabaseDriver string `json:"db_driver"`

	JWTKey            string `json:"jwt_key"`
	SessionTTLMinutes int    `json:"session_ttl_minutes"`
	SecureCookies     bool   `json:"secure_cookies"`
	// DataKey enables at-rest encryption of TOTP secrets and keyed hashing of visitor IPs.
	DataKey string `json:"data_key"`

	AdminKey      string `json:"admin_key"`
	AdminUser     string `json:"admin_user"`
	AdminPassword string `json:"admin_password"`

	Cors    CorsConfig    `json:"cors"`
	Contact ContactConfig `json:"contact"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	LogLevel           string `json:"log_level"`
	LogSamplingTickMs  int    `json:"log_sampling_tick_ms"`
	LogSamplingAfterMs int    `json:"log_sampling_after_ms"`

	OtelEnabled        bool    `json:"otel_enabled"`
	OtelEndpoint       string  `json:"otel_endpoint"`
	OtelInsecure       bool    `json:"otel_insecure"`
	OtelServiceName    string  `json:"otel_service_name"`
	OtelServiceVersion string  `json:"otel_service_version"`
	OtelSampleRate     float64 `json:"otel_sample_rate"`
}

type CorsConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

type ContactConfig struct {
	WebhookURL        string `json:"webhook_url"`
	RateLimit         int    `json:"rate_limit"`
	RateWindowSeconds int    `json:"rate_window_seconds"`
}

const (
	defaultPort          = ":8080"
	defaultSessionTTL    = 12 * 60
	defaultContactLimit  = 5
	defaultContactWindow = 3600
	defaultDatabasePath  = "folio.db"
	defaultOtelService   = "folio"
)

// Defaults fills zero values and applies environment overrides.
func (c *FolioConfig) Defaults() {
	if v := os.Getenv("FOLIO_JWT_KEY"); v != "" {
		c.JWTKey = v
	}
	if v := os.Getenv("FOLIO_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("FOLIO_DATA_KEY"); v != "" {
		c.DataKey = v
	}
	if c.Port == "" {
		c.Port = defaultPort
	}
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabasePath
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = defaultSessionTTL
	}
	if c.Contact.RateLimit <= 0 {
		c.Contact.RateLimit = defaultContactLimit
	}
	if c.Contact.RateWindowSeconds <= 0 {
		c.Contact.RateWindowSeconds = defaultContactWindow
	}
	if c.OtelServiceName == "" {
		c.OtelServiceName = defaultOtelService
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
}
