package middleware

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/database"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"gorm.io/gorm"
)

// Transaction runs each request inside one database transaction.
// The transaction commits when the handler produced a status below 400 without errors and
// rolls back otherwise. The response is held back until the commit succeeds, so a client
// never sees success for a write that was lost.
func Transaction(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context()).Begin()
		if tx.Error != nil {
			apierrors.Respond(c, tx.Error)
			return
		}

		ctx, state := database.WithTx(c.Request.Context(), tx)
		c.Request = c.Request.WithContext(ctx)

		original := c.Writer
		buffered := &bufferedWriter{ResponseWriter: original, status: http.StatusOK}
		c.Writer = buffered

		defer func() {
			if r := recover(); r != nil {
				if err := state.Rollback(); err != nil {
					slog.Error("rollback after panic failed", "error", err)
				}
				c.Writer = original
				panic(r)
			}
		}()

		c.Next()
		c.Writer = original

		if buffered.status >= http.StatusBadRequest || len(c.Errors) > 0 {
			if err := state.Rollback(); err != nil {
				slog.Error("rollback failed", "path", c.FullPath(), "error", err)
			}
			buffered.flush()
			return
		}

		if err := state.Commit(); err != nil {
			slog.Error("commit failed", "path", c.FullPath(), "error", err)
			original.Header().Del("Content-Disposition")
			c.JSON(apierrors.ErrInternal.Status, apierrors.ErrorBody{Success: false, Error: apierrors.ErrInternal})
			return
		}
		buffered.flush()
	}
}

// bufferedWriter keeps the status and body in memory until flush, so a failed commit
// can still be answered with a 500. The largest body it holds is one download,
// which MAX_UPLOAD_SIZE bounds.
type bufferedWriter struct {
	gin.ResponseWriter
	status  int
	written bool
	body    bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {
	w.written = true
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	w.written = true
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.written = true
	return w.body.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	if !w.written {
		return -1
	}
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.written
}

func (w *bufferedWriter) flush() {
	w.ResponseWriter.WriteHeader(w.status)
	if w.body.Len() == 0 {
		w.ResponseWriter.WriteHeaderNow()
		return
	}
	if _, err := w.ResponseWriter.Write(w.body.Bytes()); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
