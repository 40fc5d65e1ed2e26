package api

import (
	"context"
	"embed"
	"net/http"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/illegalcall/fittrack/internal/admin"
	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/avatar"
	"github.com/illegalcall/fittrack/internal/config"
	"github.com/illegalcall/fittrack/internal/profile"
	"github.com/illegalcall/fittrack/internal/repcount"
	"github.com/illegalcall/fittrack/internal/sessionlog"
	"github.com/illegalcall/fittrack/internal/tips"
)

//go:embed static
var staticFS embed.FS

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Auth        *auth.Facade
	Persistence *auth.Persistence
	Profiles    *profile.Service
	Sessions    *sessionlog.Log
	Feed        *tips.Feed
	Admin       *admin.Console
	Avatars     *avatar.LocalStore
	Resolver    *avatar.Resolver
	Reps        *repcount.Counter
}

type Server struct {
	app *fiber.App
	cfg *config.Config
	Deps

	tipsStale atomic.Bool
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "fittrack",
		DisableStartupMessage: cfg.IsProduction(),
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))

	server := &Server{app: app, cfg: cfg, Deps: deps}
	server.setupRoutes()
	return server
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupRoutes() {
	s.app.Use("/static", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
	}))
	if s.Avatars != nil {
		s.app.Static(s.Avatars.Prefix(), s.Avatars.Dir())
	}

	// Pages
	s.app.Get("/", s.handleIndexPage)
	s.app.Get("/tips", s.handleTipsPage)
	s.app.Get("/admin", s.handleAdminPage)

	// Monitoring
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	// Public routes
	api.Post("/signup", s.handleSignup)
	api.Post("/login", s.handleLogin)
	api.Get("/tips", cache.New(cache.Config{
		Expiration:   s.cfg.Server.CacheExpiration,
		CacheControl: true,
		CacheInvalidator: func(*fiber.Ctx) bool {
			return s.tipsStale.Swap(false)
		},
	}), s.handleListTips)
	api.Post("/calories/estimate", s.handleEstimateCalories)

	// Protected routes
	protected := api.Group("", s.requireSession())
	protected.Post("/logout", s.handleLogout)
	protected.Get("/auth/events", s.handleAuthEvents)

	protected.Get("/profile", s.handleGetProfile)
	protected.Patch("/profile", s.handleSaveProfile)
	protected.Post("/profile/password", s.handleChangePassword)
	protected.Delete("/profile", s.handleDeleteAccount)
	protected.Post("/profile/avatar", s.handleUploadAvatar)

	protected.Post("/sessions", s.handleLogSession)
	protected.Get("/sessions", s.handleRecentSessions)

	protected.Post("/reps/track", s.handleTrackReps)
	protected.Post("/reps/reset", s.handleResetReps)

	adm := protected.Group("/admin")
	adm.Get("/profiles", s.handleAdminProfiles)
	adm.Post("/profiles/:id/toggle", s.handleToggleAdmin)
	adm.Delete("/profiles/:id", s.handleDeleteProfile)
	adm.Get("/tips", s.handleAdminTips)
	adm.Post("/tips", s.handleAddTip)
	adm.Delete("/tips/:id", s.handleDeleteTip)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	sessions := "memory"
	if s.Persistence != nil && s.Persistence.Durable(c.UserContext()) {
		sessions = "durable"
	}
	return c.JSON(fiber.Map{"status": "ok", "sessions": sessions, "observers": s.Auth.Observers()})
}
