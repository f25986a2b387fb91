package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	auth "github.com/goliatone/go-admin-auth"
	"github.com/goliatone/go-admin-auth/config"
	"github.com/goliatone/go-admin-auth/internal/obs"
	"github.com/goliatone/go-admin-auth/middleware/csrf"
	"github.com/goliatone/go-admin-auth/middleware/jwtware"
	"github.com/goliatone/go-admin-auth/middleware/ratelimit"
	"github.com/goliatone/go-admin-auth/review"
	"github.com/uptrace/bun"
)

// service is everything serve and create-admin share
type service struct {
	cfg      *config.Config
	db       *bun.DB
	logger   auth.Logger
	tokens   *auth.TokenServiceImpl
	sessions *auth.SessionService
	metrics  *obs.Metrics
	limiter  *ratelimit.Limiter
}

func newService(cfg *config.Config, db *bun.DB, logger auth.Logger) (*service, error) {
	tokens, err := auth.NewTokenService(cfg.Auth, auth.WithTokenLogger(logger))
	if err != nil {
		return nil, err
	}

	metrics := obs.NewMetrics()
	metrics.SetBuildInfo(version, commit)

	sessions := auth.NewSessionService(auth.NewRepositoryManager(db), tokens, cfg.Auth).
		WithLogger(logger).
		WithActivitySink(metrics.ActivitySink())

	return &service{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		tokens:   tokens,
		sessions: sessions,
		metrics:  metrics,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}),
	}, nil
}

// newApp wires the HTTP surface. The access guard runs ahead of every route
// and lets through only what the route table marks public.
func (s *service) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "admin-auth",
		BodyLimit:             s.cfg.Server.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          auth.NewErrorHandler(s.logger),
	})

	app.Use(requestid.New(requestid.Config{Generator: obs.NewRequestID}))
	app.Use(recover.New())
	app.Use(s.metrics.Instrument())

	controller := auth.NewAuthController(
		s.sessions,
		auth.NewHTTPAuthenticator(s.cfg.Auth),
		auth.WithControllerLogger(s.logger),
		auth.WithCredentialLimiter(s.limiter.Handler()),
		auth.WithControllerDebug(!s.cfg.IsProduction()),
	)

	routes := auth.NewRouteTable().
		Public(fiber.MethodGet, "/healthz").
		Public(fiber.MethodGet, "/metrics").
		Merge(controller.PublicRoutes())

	app.Use(jwtware.New(jwtware.Config{
		Routes:         routes,
		ErrorHandler:   jwtware.ForwardError,
		TokenValidator: s.tokens.AccessValidator(),
		TokenLookup:    "header:Authorization,cookie:" + s.cfg.Auth.AccessCookieName,
		CSRF: csrf.Config{
			CookieName: s.cfg.Auth.CSRFCookieName,
			HeaderName: s.cfg.Auth.CSRFHeaderName,
		},
		SessionCookies: []string{s.cfg.Auth.AccessCookieName, s.cfg.Auth.RefreshCookieName},
		Logger:         s.logger,
	}))

	app.Get("/healthz", s.healthz)
	app.Get("/metrics", s.metrics.Handler())

	controller.RegisterRoutes(app)
	review.NewController(review.NewStore(s.db), review.WithLogger(s.logger)).RegisterRoutes(app)

	return app
}

func (s *service) healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
