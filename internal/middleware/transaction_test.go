package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/database"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/testutil"
	"gorm.io/gorm"
)

func newTxRouter(t *testing.T) (*gin.Engine, *gorm.DB, *[]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	var hooks []string

	insert := func(c *gin.Context, name string) {
		user := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
		require.NoError(t, database.Conn(c.Request.Context(), db).Create(user).Error)
		database.AfterCommit(c.Request.Context(), func() { hooks = append(hooks, name) })
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, apierrors.ErrorBody{Error: apierrors.ErrInternal})
	}))
	r.Use(Transaction(db))
	r.POST("/ok", func(c *gin.Context) {
		insert(c, "ok")
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})
	r.POST("/fail", func(c *gin.Context) {
		insert(c, "fail")
		apierrors.Respond(c, apierrors.BadRequest("nope"))
	})
	r.POST("/error", func(c *gin.Context) {
		insert(c, "error")
		_ = c.Error(errors.New("recorded"))
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	r.POST("/panic", func(c *gin.Context) {
		insert(c, "panic")
		panic("boom")
	})
	return r, db, &hooks
}

func userCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestTransaction_CommitsSuccess(t *testing.T) {
	r, db, hooks := newTxRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ok", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, int64(1), userCount(t, db))
	assert.Equal(t, []string{"ok"}, *hooks)
}

func TestTransaction_RollsBack(t *testing.T) {
	for _, path := range []string{"/fail", "/error", "/panic"} {
		t.Run(path, func(t *testing.T) {
			r, db, hooks := newTxRouter(t)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))

			assert.Zero(t, userCount(t, db))
			assert.Empty(t, *hooks)
		})
	}
}

func TestTransaction_ErrorResponsePassesThrough(t *testing.T) {
	r, _, _ := newTxRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"BAD_REQUEST","message":"nope"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
