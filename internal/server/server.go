// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	_ "rau/docs" // swagger docs
	"rau/internal/config"
	"rau/internal/database"
	"rau/internal/featureflags"
	"rau/internal/middleware"
	"rau/internal/models"
	"rau/internal/notifications"
	"rau/internal/repository"
	"rau/internal/service"

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
	"gorm.io/gorm"
)

// Deps are the already-initialized backing services a Server runs on.
type Deps struct {
	Stores *repository.Stores
	// DB is nil for the memory backend.
	DB    *gorm.DB
	Redis *redis.Client
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	stores       *repository.Stores
	featureFlags *featureflags.Manager
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	activity     *notifications.Dispatcher

	authService       *service.AuthService
	userService       *service.UserService
	communityService  *service.CommunityService
	postService       *service.PostService
	commentService    *service.CommentService
	onboardingService *service.OnboardingService
	optionsService    *service.OptionsService
}

// NewServer creates a new server instance on top of deps.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Stores == nil {
		return nil, errors.New("stores are required")
	}

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("rau-api"),
		stores:         deps.Stores,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(deps.Redis),
		hub:            notifications.NewHub(),
	}
	s.activity = notifications.NewDispatcher(s.notifier, s.hub, s.featureFlags)

	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	st := deps.Stores
	s.authService = service.NewAuthService(st.Users, deps.Redis, cfg.JWTSecret, ttl)
	s.userService = service.NewUserService(st.Users)
	s.communityService = service.NewCommunityService(st.Communities)
	s.postService = service.NewPostService(st.Posts, st.Communities, st.Users, s.activity)
	s.commentService = service.NewCommentService(st.Comments, st.Posts, st.Users, s.featureFlags, s.activity)
	s.onboardingService = service.NewOnboardingService(st.Onboarding, st.Communities)
	s.optionsService = service.NewOptionsService()

	return s, nil
}

// App builds the Fiber application with middleware and routes mounted.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      s.config.AppName,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escape handlers, including Fiber's own
// 404/405 for unknown routes.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			code = models.CodeValidation
		case fiber.StatusUnauthorized:
			code = models.CodeUnauthorized
		case fiber.StatusForbidden:
			code = models.CodeForbidden
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Propagate request, user and trace ids into the request context
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global per-IP limit; the finer Redis-backed limits sit on individual routes.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "RAU Backend Metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Specific /me routes before the generic /:id route
	users := api.Group("/users")
	users.Patch("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Get("/me/bookmarks", s.AuthRequired(), s.GetMyBookmarks)
	users.Get("/:id", s.GetUserProfile)

	communities := api.Group("/communities")
	communities.Get("/", s.SearchCommunities)
	communities.Post("/", s.AuthRequired(), s.CreateCommunity)
	communities.Post("/:id/join", s.AuthRequired(), s.JoinCommunity)
	communities.Post("/:id/leave", s.AuthRequired(), s.LeaveCommunity)
	communities.Delete("/:id/leave", s.AuthRequired(), s.LeaveCommunity)
	communities.Get("/:id", s.GetCommunity)

	posts := api.Group("/posts")
	posts.Get("/", s.OptionalAuth(), s.GetPosts)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/vote", s.AuthRequired(), s.VotePost)
	posts.Post("/:id/bookmark", s.AuthRequired(), s.ToggleBookmark)
	posts.Post("/:id/best-comment", s.AuthRequired(), s.SetBestComment)
	posts.Patch("/:id/status", s.AuthRequired(), s.ChangePostStatus)
	posts.Get("/:id/comments", s.OptionalAuth(), s.GetComments)
	posts.Post("/:id/comments", s.AuthRequired(), middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	api.Post("/comments/:id/vote", s.AuthRequired(), s.VoteComment)

	onboarding := api.Group("/onboarding", s.AuthRequired())
	onboarding.Get("/", s.GetOnboarding)
	onboarding.Post("/", s.SaveOnboarding)
	onboarding.Put("/", s.SaveOnboarding)

	options := api.Group("/options")
	options.Get("/careers", s.GetCareerOptions)
	options.Get("/years", s.GetYearOptions)
	options.Get("/grad-years", s.GetGradYearOptions)

	api.Get("/feature-flags", s.OptionalAuth(), s.GetFeatureFlags)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.WSAuth(), s.ActivityStreamHandler())
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports the state of the storage backend and Redis. Redis is
// optional: its absence degrades realtime delivery but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "memory"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overall,
		"backend": s.config.StorageBackend,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the activity hub to Redis and starts listening.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start activity wiring: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s (backend=%s)...", s.config.Port, s.config.StorageBackend)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server and releases the backing services.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("activity hub: %w", err))
	}
	if err := database.Close(s.db); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	log.Println("Server shutdown complete")
	return errors.Join(errs...)
}
