// Package server wires repositories, services, handlers and middleware into the HTTP router.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/auth"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/handlers"
	"github.com/yukikurage/taskflow-api/internal/metrics"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/ratelimit"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/storage"
	"gorm.io/gorm"
)

const sessionMaxAge = 7 * 24 * 60 * 60

// Deps are the long-lived components the router is built from.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Limiter  ratelimit.Limiter
	Blobs    storage.BlobStore
	Queue    services.AssignmentQueue
	Sessions sessions.Store
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenManager
	AI       *services.AIService
}

// NewRouter builds the gin engine serving the API.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hasher := d.Hasher
	if hasher == nil {
		hasher = auth.NewPasswordHasher()
	}
	tokens := d.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManagerFromConfig(d.Config)
	}

	userRepo := repository.NewUserRepository(d.DB)
	taskRepo := repository.NewTaskRepository(d.DB)
	commentRepo := repository.NewCommentRepository(d.DB)
	fileRepo := repository.NewFileRepository(d.DB)
	analyticsRepo := repository.NewAnalyticsRepository(d.DB, taskRepo)

	authService := services.NewAuthService(userRepo, hasher, tokens)
	taskService := services.NewTaskService(d.DB, taskRepo, userRepo, commentRepo, fileRepo, d.Queue)
	commentService := services.NewCommentService(taskRepo, commentRepo, userRepo)
	fileService := services.NewFileService(taskRepo, fileRepo, userRepo, d.Blobs, d.Config.MaxUploadSize, logger)
	analyticsService := services.NewAnalyticsService(analyticsRepo, userRepo)

	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService, d.AI)
	commentHandler := handlers.NewCommentHandler(commentService)
	fileHandler := handlers.NewFileHandler(fileService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, apierrors.ErrorBody{Success: false, Error: apierrors.ErrInternal})
	}))
	r.Use(middleware.RequestLogger(logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(corsConfig(d.Config)))
	r.Use(sessions.Sessions(constants.SessionCookieName, d.Sessions))

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.Message("TaskFlow API is running"))
	})

	api := r.Group("/api")
	api.Use(middleware.Transaction(d.DB))
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register",
				middleware.RateLimit(d.Limiter, d.Metrics, "register", constants.RegisterRateLimit, time.Minute),
				authHandler.Register)
			authRoutes.POST("/login",
				middleware.RateLimit(d.Limiter, d.Metrics, "login", constants.LoginRateLimit, time.Minute),
				authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", middleware.RequireAuth(authService), authHandler.GetCurrentUser)
		}

		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(authService), middleware.RequireUUIDParams("id", "comment_id", "file_id"))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/bulk", taskHandler.BulkCreateTasks)
			tasks.GET("/users", taskHandler.ListUsers)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)

			tasks.GET("/:id/comments", commentHandler.ListComments)
			tasks.POST("/:id/comments", commentHandler.CreateComment)
			tasks.PUT("/:id/comments/:comment_id", commentHandler.UpdateComment)
			tasks.DELETE("/:id/comments/:comment_id", commentHandler.DeleteComment)

			tasks.GET("/:id/files", fileHandler.ListFiles)
			tasks.POST("/:id/files", fileHandler.UploadFiles)
			tasks.GET("/:id/files/:file_id", fileHandler.DownloadFile)
			tasks.DELETE("/:id/files/:file_id", fileHandler.DeleteFile)
		}

		analytics := api.Group("/analytics")
		analytics.Use(middleware.RequireAuth(authService))
		{
			analytics.GET("/overview", analyticsHandler.Overview)
			analytics.GET("/performance", analyticsHandler.Performance)
			analytics.GET("/trends", analyticsHandler.Trends)
			analytics.GET("/export", analyticsHandler.Export)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		apierrors.Respond(c, apierrors.NotFound(""))
	})
	return r
}

// NewSessionStore builds the store selected by SESSION_STORE.
func NewSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	case "redis":
		s, err := redisStore.NewStore(10, "tcp", cfg.RedisAddr(), "", cfg.RedisPassword, []byte(cfg.SessionSecret))
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
		c.AllowCredentials = true
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.ExposeHeaders = []string{"Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}
	return c
}
