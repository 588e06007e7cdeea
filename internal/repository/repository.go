package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// Every method resolves its connection from ctx, so calls made with a request
// context join that request's transaction.

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by email, compared case-insensitively
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByIDs loads users for the given IDs, keyed by ID. Unknown IDs are absent from the map.
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)

	// Exists reports whether a user with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)

	// List returns every user ordered by name
	List(ctx context.Context) ([]models.User, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task and its tags
	Create(ctx context.Context, task *models.Task) error

	// CreateMany inserts several tasks and their tags
	CreateMany(ctx context.Context, tasks []*models.Task) error

	// FindLive finds a non-deleted task by ID with its tags
	FindLive(ctx context.Context, id string) (*models.Task, error)

	// FindAny finds a task by ID whether or not it was soft-deleted
	FindAny(ctx context.Context, id string) (*models.Task, error)

	// List retrieves live tasks matching the filter and the total before pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update writes the task's scalar columns
	Update(ctx context.Context, task *models.Task) error

	// ReplaceTags replaces the task's tags with tags, keeping their order
	ReplaceTags(ctx context.Context, taskID string, tags []string) error

	// SoftDelete flags the task as deleted at the given time
	SoftDelete(ctx context.Context, task *models.Task, at time.Time) error

	// LoadTags fills Tags for every task in place
	LoadTags(ctx context.Context, tasks []models.Task) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	Search     string
	Tags       []string
	AssignedTo string
	SortBy     string
	Order      string
	Pagination utils.PaginationParams
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByTask returns a task's comments oldest first
	ListByTask(ctx context.Context, taskID string) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
}

// FileRepository defines the interface for file metadata access
type FileRepository interface {
	CreateMany(ctx context.Context, files []*models.File) error
	FindByID(ctx context.Context, id string) (*models.File, error)
	// ListByTask returns a task's files oldest first
	ListByTask(ctx context.Context, taskID string) ([]models.File, error)
	Delete(ctx context.Context, id string) error
}

// GroupCount is one row of a GROUP BY count.
type GroupCount struct {
	Key   string `gorm:"column:group_key"`
	Count int64  `gorm:"column:total"`
}

// CompletionRow carries what is needed to compute completion latency for one task.
type CompletionRow struct {
	AssignedTo string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AnalyticsRepository reads aggregate inputs over live tasks. An empty assignee means all tasks.
type AnalyticsRepository interface {
	CountByStatus(ctx context.Context, assignee string) ([]GroupCount, error)
	CountByPriority(ctx context.Context, assignee string) ([]GroupCount, error)
	// OpenDueDates returns the due dates of tasks that are not DONE and have one
	OpenDueDates(ctx context.Context, assignee string) ([]time.Time, error)
	// CompletedAssigned returns DONE tasks that have an assignee
	CompletedAssigned(ctx context.Context, assignee string) ([]CompletionRow, error)
	CreatedSince(ctx context.Context, assignee string, since time.Time) ([]time.Time, error)
	// CompletedSince returns updated_at of DONE tasks updated at or after since
	CompletedSince(ctx context.Context, assignee string, since time.Time) ([]time.Time, error)
	// ExportTasks returns live tasks newest first with tags loaded
	ExportTasks(ctx context.Context, assignee string) ([]models.Task, error)
}
