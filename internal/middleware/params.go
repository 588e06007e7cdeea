package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
)

// RequireUUIDParams rejects requests whose named path parameters are not UUIDs.
// Malformed ids can never match a row, so they are reported as not found.
func RequireUUIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			value := c.Param(name)
			if value == "" {
				continue
			}
			if _, err := uuid.Parse(value); err != nil {
				apierrors.Respond(c, apierrors.NotFound(""))
				return
			}
		}
		c.Next()
	}
}
