package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/adonese/folio/analytics"
	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/dashboard"
	"github.com/adonese/folio/site"
	"github.com/adonese/folio/store"
	"github.com/adonese/folio/utils"
	"github.com/goccy/go-json"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	migrateTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	webhookTimeout  = 10 * time.Second
	bodyLimit       = 1 << 20
)

// server owns the long-lived dependencies shared by the handlers.
type server struct {
	cfg    cms_fields.FolioConfig
	db     *store.DB
	store  *store.Store
	redis  *redis.Client
	auth   *gateway.JWTAuth
	logger *logrus.Logger
}

// openStore opens the configured database and applies pending migrations.
func openStore(ctx context.Context, cfg cms_fields.FolioConfig) (*store.DB, *store.Store, error) {
	logrusLogger.Printf("The final database file is: %#v", cfg.DatabasePath)
	db, err := store.OpenFromConfig(cfg.DatabaseURL, cfg.DatabasePath, cfg.DatabaseDriver)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	migrateCtx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()
	if err := store.Migrate(migrateCtx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, store.New(db, store.WithDataKey(cfg.DataKey)), nil
}

func newServer(ctx context.Context, cfg cms_fields.FolioConfig, logger *logrus.Logger) (*server, error) {
	db, st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DataKey == "" {
		logger.Warn("data_key not set, totp secrets are stored in plain text")
	}

	rdb, err := utils.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		// rate limits and live counters fall back to in-process state
		logger.WithError(err).Warn("redis unavailable")
		rdb = nil
	}

	auth, err := gateway.NewJWTAuth(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if cfg.JWTKey == "" {
		logger.Warn("jwt_key not set, sessions will not survive a restart")
	}
	return &server{cfg: cfg, db: db, store: st, redis: rdb, auth: auth, logger: logger}, nil
}

func (s *server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// GetMainEngine builds the fiber app with the middleware chain, the public site and the
// admin API mounted under /api/admin.
func (s *server) GetMainEngine() *fiber.App {
	route := fiber.New(fiber.Config{
		AppName:      "folio",
		BodyLimit:    bodyLimit,
		ErrorHandler: gateway.ErrorHandler(s.logger),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	route.Use(recover.New())
	route.Use(gateway.RequestID())
	if otelEnabled {
		route.Use(gateway.Tracing())
	}
	route.Use(gateway.RequestLogger(s.logger, logSampling))
	route.Use(gateway.Instrumentation())
	route.Use(gateway.Cors(s.cfg.Cors))

	route.Get("/metrics", gateway.RequireAdmin(gateway.AdminAuthFromConfig(s.cfg)), adaptor.HTTPHandler(promhttp.Handler()))

	counter := analytics.NewCounter(s.redis)
	siteSvc := &site.Service{
		Store:   s.store,
		Counter: counter,
		Notifier: &utils.Notifier{
			URL:     s.cfg.Contact.WebhookURL,
			Client:  &http.Client{Timeout: webhookTimeout},
			Logger:  s.logger,
			SiteURL: s.cfg.SiteURL,
		},
		Redis:       s.redis,
		FolioConfig: s.cfg,
		Logger:      s.logger,
	}
	dashSvc := &dashboard.Service{
		Store: s.store,
		Auth:  s.auth,
		Analytics: &analytics.Service{
			Store:     s.store,
			Counter:   counter,
			SiteHosts: siteHosts(s.cfg.SiteURL),
			Logger:    s.logger,
			Now:       s.store.Now,
		},
		Redis:       s.redis,
		FolioConfig: s.cfg,
		Logger:      s.logger,
	}

	dashSvc.Routes(route.Group("/api/admin"))
	siteSvc.Routes(route)
	return route
}

// siteHosts lists the hosts whose referrers count as internal navigation.
func siteHosts(siteURL string) []string {
	if siteURL == "" {
		return nil
	}
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{u.Hostname()}
}

// serve runs the app until ctx is cancelled, then drains in-flight requests.
func (s *server) serve(ctx context.Context, app *fiber.App) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Port).Info("folio listening")
		errCh <- app.Listen(s.cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
