// Package testutil builds the in-memory databases and fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory SQLite database that is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, PasswordHash: "hashedpassword"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// TaskOption customizes a fixture task before it is inserted.
type TaskOption func(*models.Task)

func WithStatus(s models.TaskStatus) TaskOption {
	return func(t *models.Task) { t.Status = s }
}

func WithPriority(p models.TaskPriority) TaskOption {
	return func(t *models.Task) { t.Priority = p }
}

func WithDescription(d string) TaskOption {
	return func(t *models.Task) { t.Description = &d }
}

func WithAssignee(userID string) TaskOption {
	return func(t *models.Task) { t.AssignedTo = &userID }
}

func WithDueDate(due time.Time) TaskOption {
	return func(t *models.Task) { t.DueDate = &due }
}

func WithTags(tags ...string) TaskOption {
	return func(t *models.Task) { t.Tags = tags }
}

// WithTimes fixes created_at and updated_at.
func WithTimes(created, updated time.Time) TaskOption {
	return func(t *models.Task) {
		t.CreatedAt = created
		t.UpdatedAt = updated
	}
}

func Deleted() TaskOption {
	return func(t *models.Task) {
		now := time.Now().UTC()
		t.IsDeleted = true
		t.DeletedAt = &now
	}
}

// CreateTask inserts a task row and its tags directly.
func CreateTask(t testing.TB, db *gorm.DB, title, creatorID string, opts ...TaskOption) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		CreatedBy: creatorID,
	}
	for _, opt := range opts {
		opt(task)
	}

	require.NoError(t, db.Omit("Creator", "Assignee").Create(task).Error)
	for i, tag := range task.Tags {
		require.NoError(t, db.Omit("Task").Create(&models.TaskTag{TaskID: task.ID, Position: i, Value: tag}).Error)
	}
	return task
}
