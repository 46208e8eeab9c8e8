// Package api is the Rento HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rento/logger"
	"rento/metrics"
	"rento/middleware/ratelimit"
	"rento/middleware/ratelimit/application"
	"rento/middleware/ratelimit/domain"
	"rento/middleware/ratelimit/infra"
	"rento/store"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options struct {
	Repo store.Repository
	Auth *Authenticator

	// Windows backs the per-caller quotas. Nil disables them.
	Windows domain.WindowStore
	// Policies per action class; missing classes use domain.DefaultPolicies.
	Policies map[string]domain.Config
	// Edge is the per-IP token bucket in front of every route. Nil disables it.
	Edge  domain.LimiterStore
	Stats domain.StatsStore

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	AddRateLimitHeaders bool
	TrustXForwardedFor  bool

	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

type Server struct {
	echo     *echo.Echo
	repo     store.Repository
	auth     *Authenticator
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
	windows  application.WindowService
	policies map[string]domain.Config
	stats    domain.StatsStore
	addHdrs  bool
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	policies := domain.DefaultPolicies()
	for name, p := range opts.Policies {
		policies[name] = p
	}

	s := &Server{
		echo:    echo.New(),
		repo:    opts.Repo,
		auth:    opts.Auth,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
		windows: application.WindowService{
			Store:  opts.Windows,
			Logger: opts.Logger,
			Now:    opts.Now,
		},
		policies: policies,
		stats:    infra.MultiStats{infra.NewPrometheusStats(opts.Metrics.RateLimitDecisions), opts.Stats},
		addHdrs:  opts.AddRateLimitHeaders,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = s.errorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logger.Middleware(opts.Logger))
	e.Use(opts.Metrics.Middleware())
	e.Use(routeTemplate)
	if opts.Edge != nil {
		e.Use(echo.WrapMiddleware(ratelimit.Middleware(ratelimit.Options{
			Store:              opts.Edge,
			Stats:              s.stats,
			TrustXForwardedFor: opts.TrustXForwardedFor,
			Now:                opts.Now,
		})))
	}

	e.GET("/health", s.health)
	e.GET("/metrics", opts.Metrics.Handler())

	writes := echo.WrapMiddleware(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            opts.ConcurrencyMax,
		AcquireTimeout: opts.ConcurrencyTimeout,
		OnReject:       opts.Metrics.ConcurrencyRejects.Inc,
	}))

	g := e.Group("/api", s.auth.Middleware())

	g.POST("/properties", s.createProperty, writes)

	g.POST("/applications", s.createApplication, s.window(domain.StoreApplications), writes)
	g.GET("/applications/:id", s.getApplication)
	g.PATCH("/applications/:id/status", s.updateApplicationStatus, s.window(domain.StoreApplications), writes)

	g.POST("/tours", s.createTour, s.window(domain.StoreTours), writes)
	g.GET("/tours/:id", s.getTour)
	g.PATCH("/tours/:id/status", s.updateTourStatus, s.window(domain.StoreTours), writes)

	g.POST("/messages", s.createMessage, s.window(domain.StoreMessages), writes)

	g.POST("/favorites", s.addFavorite, s.window(domain.StoreFavorites), writes)
	g.DELETE("/favorites/:propertyId", s.removeFavorite, s.window(domain.StoreFavorites), writes)

	return s
}

// window is the fixed window quota of one action class, keyed by caller.
func (s *Server) window(class string) echo.MiddlewareFunc {
	return echo.WrapMiddleware(ratelimit.WindowMiddleware(ratelimit.WindowOptions{
		Service:    s.windows,
		Config:     s.policies[class],
		KeyFn:      callerKeyFunc,
		Stats:      s.stats,
		AddHeaders: s.addHdrs,
		Now:        s.now,
		OnDenied: func(r *http.Request, key string, res domain.Result) {
			logger.FromContext(r.Context()).Info("rate limited",
				zap.String("store", class),
				zap.String("caller_id", key),
				zap.Time("reset_at", res.ResetAt))
		},
	}))
}

// routeTemplate puts the matched route on the request context so the net/http
// rate limit adapters record /api/tours/:id instead of every concrete id.
func routeTemplate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		c.SetRequest(c.Request().WithContext(ratelimit.WithRoute(c.Request().Context(), route)))
		return next(c)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.echo.Server.ReadTimeout = readTimeout
	s.echo.Server.WriteTimeout = writeTimeout
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler renders every error as {"error": "..."}.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		logger.FromEcho(c).Error("unhandled error", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) health(c echo.Context) error {
	if p, ok := s.repo.(pinger); ok {
		if err := p.Ping(c.Request().Context()); err != nil {
			logger.FromEcho(c).Warn("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
