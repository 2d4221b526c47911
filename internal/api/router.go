package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/clubhub/internal/api/handlers"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/directory"
	"github.com/hugh/clubhub/internal/metrics"
	"github.com/hugh/clubhub/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
}

// Close stops background work owned by the router.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client // optional
	Logger      *slog.Logger
	AuthService *auth.Service
	Directory   *directory.Service
	State       *auth.StateService
	Providers   map[string]auth.Provider
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // serves /metrics when set
	Templates   *web.Templates
	StaticFS    fs.FS
	CSRFStore   *middleware.CSRFStore

	CookieName   string
	SecureCookie bool
	SessionTTL   time.Duration

	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	rt := &Router{Router: r}

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))

	if cfg.RateLimitReqs > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		rt.limiters = append(rt.limiters, limiter)
		r.Use(middleware.RateLimit(limiter))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Session(cfg.AuthService, cfg.CookieName, cfg.Logger))
	if cfg.CSRFStore != nil {
		r.Use(middleware.CSRF(cfg.CSRFStore))
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.State, cfg.Providers, handlers.CookieSettings{
		Name:   cfg.CookieName,
		Secure: cfg.SecureCookie,
		TTL:    cfg.SessionTTL,
	}, cfg.Logger)
	orgHandler := handlers.NewOrganizationHandler(cfg.Directory, cfg.Logger)
	collegeHandler := handlers.NewCollegeHandler(cfg.Directory, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.AuthService, cfg.Logger)
	pageHandler := handlers.NewPageHandler(cfg.Directory, cfg.AuthService, cfg.Templates, cfg.CSRFStore, cfg.Providers, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// OAuth flow
	r.Get("/auth/signin", authHandler.SignIn)
	r.Get("/auth/callback/{provider}", authHandler.Callback)
	r.Post("/auth/signout", authHandler.SignOut)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/auth/session", authHandler.Session)

		r.Get("/organizations", orgHandler.List)
		r.Get("/organizations/{id}", orgHandler.Get)
		r.Get("/colleges", collegeHandler.List)
		r.Get("/users/{id}", userHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			if cfg.RateLimitReqs > 0 {
				limiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
				rt.limiters = append(rt.limiters, limiter)
				r.Use(middleware.RateLimitByUser(limiter))
			}

			r.Post("/organizations/{id}/members", orgHandler.Join)
			r.Delete("/organizations/{id}/members/me", orgHandler.Leave)
		})
	})

	// Web pages
	r.Get("/", pageHandler.Index)
	r.Get("/organizations/{id}", pageHandler.Organization)
	r.Get("/about", pageHandler.About)
	r.Get("/login", pageHandler.Login)
	r.With(middleware.RequireSession).Get("/profile", pageHandler.Profile)

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return rt
}
