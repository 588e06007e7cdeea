package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/auth"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/storage"
	"github.com/yukikurage/taskflow-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testMaxUploadSize = 1024

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenManager
	blobs  *storage.DiskStore
}

// envelope mirrors the success and error response shapes.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Meta    struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestEnv(t *testing.T, ai *services.AIService) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", "taskflow-test", 15*time.Minute, time.Hour)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	fileRepo := repository.NewFileRepository(db)

	authService := services.NewAuthService(userRepo, auth.NewPasswordHasherWithCost(bcrypt.MinCost), tokens)
	taskHandler := NewTaskHandler(services.NewTaskService(db, taskRepo, userRepo, commentRepo, fileRepo, nil), ai)
	commentHandler := NewCommentHandler(services.NewCommentService(taskRepo, commentRepo, userRepo))
	fileHandler := NewFileHandler(services.NewFileService(taskRepo, fileRepo, userRepo, blobs, testMaxUploadSize, nil))
	analyticsHandler := NewAnalyticsHandler(services.NewAnalyticsService(repository.NewAnalyticsRepository(db, taskRepo), userRepo))
	authHandler := NewAuthHandler(authService)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	api := r.Group("/api", middleware.Transaction(db))

	a := api.Group("/auth")
	a.POST("/register", authHandler.Register)
	a.POST("/login", authHandler.Login)
	a.POST("/refresh", authHandler.Refresh)
	a.POST("/logout", authHandler.Logout)
	a.GET("/me", middleware.RequireAuth(authService), authHandler.GetCurrentUser)

	tasks := api.Group("/tasks", middleware.RequireAuth(authService), middleware.RequireUUIDParams("id", "comment_id", "file_id"))
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

	an := api.Group("/analytics", middleware.RequireAuth(authService))
	an.GET("/overview", analyticsHandler.Overview)
	an.GET("/performance", analyticsHandler.Performance)
	an.GET("/trends", analyticsHandler.Trends)
	an.GET("/export", analyticsHandler.Export)

	return &testEnv{db: db, router: r, tokens: tokens, blobs: blobs}
}

// request sends a JSON request, authenticated as user when it is not nil.
func (e *testEnv) request(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, user)
}

func (e *testEnv) send(t *testing.T, req *http.Request, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if user != nil {
		token, err := e.tokens.IssueAccessToken(user.ID, user.Email)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
