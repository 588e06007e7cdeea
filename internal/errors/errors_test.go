package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	notFound := NotFound("Task not found")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", notFound, http.StatusNotFound, ErrCodeNotFound},
		{"wrapped api error", fmt.Errorf("load: %w", notFound), http.StatusNotFound, ErrCodeNotFound},
		{"forbidden", Forbidden(""), http.StatusForbidden, ErrCodeForbidden},
		{"plain error", fmt.Errorf("connection reset"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestRespond_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Respond(c, fmt.Errorf("pq: relation \"tasks\" does not exist"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "Internal server error", errBody["message"])
	assert.Equal(t, ErrCodeInternalError, errBody["code"])
	assert.Len(t, c.Errors, 1)
}

func TestRespond_DefaultMessages(t *testing.T) {
	assert.Equal(t, "Not authenticated", Unauthorized("").Message)
	assert.Equal(t, "Bad request", BadRequest("").Message)
	assert.Equal(t, "custom", Conflict("custom").Message)
	assert.Equal(t, http.StatusRequestEntityTooLarge, PayloadTooLarge("").Status)
	assert.Equal(t, "Request body too large", PayloadTooLarge("").Message)
}
