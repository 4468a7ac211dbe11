// Package server contains the HTTP handlers of the snapgram API.
package server

import (
	"context"
	"errors"
	"time"

	"snapgram/internal/bootstrap"
	"snapgram/internal/cache"
	"snapgram/internal/config"
	"snapgram/internal/filestore"
	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	cache          *cache.Cache
	disk           *filestore.Disk
	postService    *service.PostService
	userService    *service.UserService
}

// NewServer creates a server over an initialized runtime.
func NewServer(cfg *config.Config, rt *bootstrap.Runtime) *Server {
	return &Server{
		config:         cfg,
		runtime:        rt,
		promMiddleware: middleware.InitMetrics("snapgram-api"),
		cache:          rt.Cache,
		disk:           rt.Disk,
		postService:    rt.Posts,
		userService:    rt.Users,
	}
}

// App builds the fiber application with middleware and routes. It is
// built once; later calls return the same app.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "snapgram API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, err)
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) bodyLimit() int {
	mb := s.config.MaxUploadSizeMB
	if mb <= 0 {
		mb = service.DefaultMaxUploadSizeMB
	}
	// room for the multipart envelope and form fields
	return (mb + 1) * 1024 * 1024
}

// SetupMiddleware configures the middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// previews are embedded by the web client on another origin
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger(observability.GlobalLogger.Logger))

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	requireAuth := middleware.AuthRequired(s.userService)
	rdb := s.cache.Client()

	auth := api.Group("/auth")
	auth.Post("/sign-up", middleware.RateLimit(rdb, authRateLimit, authRateWindow, "auth:sign-up"), s.SignUp)
	auth.Post("/sign-in", middleware.RateLimit(rdb, authRateLimit, authRateWindow, "auth:sign-in"), s.SignIn)
	auth.Post("/sign-out", requireAuth, s.SignOut)

	users := api.Group("/users")
	users.Get("/me", requireAuth, s.GetCurrentUser)
	users.Get("/", s.GetUsers)
	users.Get("/:id", s.GetUserByID)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Put("/:id", requireAuth, s.UpdateUserProfile)

	posts := api.Group("/posts")
	posts.Get("/", s.GetRecentPosts)
	posts.Get("/infinite", s.GetInfinitePosts)
	posts.Get("/search", s.SearchPosts)
	posts.Get("/:id", s.GetPostByID)
	posts.Post("/", requireAuth, s.CreatePost)
	posts.Put("/:id", requireAuth, s.UpdatePost)
	posts.Delete("/:id", requireAuth, s.DeletePost)
	posts.Put("/:id/likes", requireAuth, s.LikePost)
	posts.Post("/:id/saves", requireAuth, s.SavePost)

	saves := api.Group("/saves", requireAuth)
	saves.Get("/", s.GetSavedPosts)
	saves.Delete("/:id", s.DeleteSavedPost)

	api.Get("/files/:id/preview", s.GetFilePreview)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the document store and Redis. Redis is optional:
// a disabled cache is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := s.runtime.PingDocumentStore(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.cache.Enabled() {
		redisStatus = "healthy"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	app := s.App()
	observability.GlobalLogger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.GlobalLogger.ErrorContext(ctx, "error shutting down HTTP server", "error", err)
		}
	}
	err := s.runtime.Close(ctx)
	observability.GlobalLogger.InfoContext(ctx, "server shutdown complete")
	return err
}
