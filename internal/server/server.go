// Package server contains the HTTP handlers and routing for the Bolify API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "bolify/docs" // swagger docs
	"bolify/internal/auth"
	"bolify/internal/bootstrap"
	"bolify/internal/cache"
	"bolify/internal/config"
	"bolify/internal/featureflags"
	"bolify/internal/imagestore"
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config             *config.Config
	runtime            *bootstrap.Runtime
	redis              *redis.Client
	app                *fiber.App
	promMiddleware     *fiberprometheus.FiberPrometheus
	tokens             *auth.TokenService
	blacklist          *cache.TokenBlacklist
	features           *featureflags.Manager
	userService        *service.UserService
	blogService        *service.BlogService
	interactionService *service.InteractionService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt, auth.NewGoogleVerifier(cfg.GoogleClientID))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the stores.
func NewServerWithDeps(cfg *config.Config, rt *bootstrap.Runtime, identities auth.IdentityVerifier) (*Server, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		runtime:        rt,
		redis:          rt.Redis,
		promMiddleware: middleware.InitMetrics("bolify-api"),
		tokens:         auth.NewTokenService(cfg.JWTSecret, ttl),
		blacklist:      cache.NewTokenBlacklist(rt.Redis),
		features:       featureflags.NewManager(cfg.FeatureFlags),
	}

	s.userService = service.NewUserService(rt.Users, rt.Images, s.tokens, identities, s.blacklist, service.UserSettings{
		DefaultAvatarURL: cfg.DefaultAvatarURL,
		AllowAdminSignup: cfg.AllowAdminSignup,
		MaxUploadBytes:   cfg.MaxUploadBytes(),
	})
	s.blogService = service.NewBlogService(rt.Blogs, rt.Users, rt.Images, service.BlogSettings{
		DefaultCoverURL: cfg.DefaultBlogCoverURL,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
	})
	s.interactionService = service.NewInteractionService(rt.Blogs, rt.Users)

	// Wrapped causes are only rendered outside production.
	models.ExposeErrorDetails = !cfg.IsProduction()

	return s, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Bolify API",
		// Room for one image plus the form fields.
		BodyLimit:    int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	return respondWithError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Server span per request; must precede the context middleware so the
	// trace id reaches the logger.
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PATCH,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per 15 minutes per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 15 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return respondWithError(c, models.NewRateLimitedError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Welcome)

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.runtime.Images.(*imagestore.Local); ok {
		app.Static(s.config.MediaBaseURL, local.Dir(), fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Bolify API Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRequired := middleware.AuthRequired(s.tokens, s.blacklist)
	optionalAuth := middleware.OptionalAuth(s.tokens, s.blacklist)
	blogCtx := middleware.BlogContext()

	// User routes
	users := api.Group("/users")
	users.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	users.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/logout", authRequired, s.Logout)
	users.Get("/me", authRequired, s.GetMe)
	users.Get("/features", optionalAuth, s.GetFeatures)

	// Federated auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/google-login", s.featureGate(featureflags.GoogleLogin), middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "google_login"), s.GoogleLogin)

	// Blog routes. Static paths are registered before /:id.
	blogs := api.Group("/blog")
	blogs.Get("/blogs", s.ListBlogs)
	blogs.Get("/search", s.featureGate(featureflags.Search), middleware.RateLimit(
		s.redis, 30, time.Minute, "search"), s.SearchBlogs)
	blogs.Post("/create", authRequired, s.CreateBlog)
	blogs.Get("/user/blogs", authRequired, s.ListMyBlogs)
	blogs.Patch("/:id/views", blogCtx, optionalAuth, s.RecordView)
	blogs.Patch("/:id/likes", blogCtx, authRequired, s.ToggleLike)
	blogs.Post("/:id/comments", blogCtx, authRequired, s.featureGate(featureflags.Comments), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.AddComment)
	blogs.Get("/:id", blogCtx, s.GetBlog)
	blogs.Delete("/:id", blogCtx, authRequired, s.DeleteBlog)

	// Admin routes
	admin := api.Group("/admin", authRequired, middleware.AdminRequired())
	admin.Get("/admins", s.ListAdmins)
	admin.Patch("/users/:id/role", s.SetUserRole)
}

// Welcome handles GET /
func (s *Server) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the Bolify API"})
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness check requests. Redis is optional: the API
// runs without rate limits and revocation when it is unreachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true
	for name, check := range s.runtime.Checks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy"
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}
	if _, ok := s.runtime.Checks["redis"]; !ok {
		checks["redis"] = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Bolify API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks":  checks,
		"time":    time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.ErrorContext(ctx, "error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.runtime.Close(ctx); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "Server shutdown complete")
	return nil
}
