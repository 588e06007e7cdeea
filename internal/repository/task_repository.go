package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort keys accepted by List. Anything else sorts by created_at.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
	SortStatus    = "status"
	SortPriority  = "priority"
	SortDueDate   = "due_date"
)

// likeEscape is the escape character used in search patterns.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.CreateMany(ctx, []*models.Task{task})
}

// CreateMany inserts tasks in one statement and then their tags
func (r *GormTaskRepository) CreateMany(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	db := r.conn(ctx)
	if err := db.Omit(clause.Associations).Create(&tasks).Error; err != nil {
		return err
	}

	var tags []models.TaskTag
	for _, t := range tasks {
		tags = append(tags, tagRows(t.ID, t.Tags)...)
	}
	if len(tags) == 0 {
		return nil
	}
	return db.Omit(clause.Associations).Create(&tags).Error
}

// FindLive finds a task that has not been soft-deleted
func (r *GormTaskRepository) FindLive(ctx context.Context, id string) (*models.Task, error) {
	return r.find(ctx, id, true)
}

// FindAny finds a task including soft-deleted ones
func (r *GormTaskRepository) FindAny(ctx context.Context, id string) (*models.Task, error) {
	return r.find(ctx, id, false)
}

func (r *GormTaskRepository) find(ctx context.Context, id string, liveOnly bool) (*models.Task, error) {
	query := r.conn(ctx).Where("tasks.id = ?", id)
	if liveOnly {
		query = query.Scopes(database.LiveTasks)
	}

	var task models.Task
	if err := query.First(&task).Error; err != nil {
		return nil, err
	}

	tasks := []models.Task{task}
	if err := r.LoadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	base := func() *gorm.DB {
		return r.conn(ctx).Model(&models.Task{}).Scopes(database.LiveTasks, filterScope(filter))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := []models.Task{}
	if total == 0 {
		return tasks, 0, nil
	}

	listQuery := base()
	for _, order := range orderClauses(filter.SortBy, filter.Order) {
		listQuery = listQuery.Order(order)
	}
	if err := listQuery.Scopes(database.Paginate(filter.Pagination)).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	if err := r.LoadTags(ctx, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// filterScope applies every predicate of the filter. It is shared by the count and page queries.
func filterScope(filter TaskFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			db = db.Where("tasks.status = ?", *filter.Status)
		}
		if filter.Priority != nil {
			db = db.Where("tasks.priority = ?", *filter.Priority)
		}
		if filter.Search != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
			db = db.Where(
				"(LOWER(tasks.title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(tasks.description) LIKE ? ESCAPE '"+likeEscape+"')",
				pattern, pattern,
			)
		}
		if len(filter.Tags) > 0 {
			lowered := make([]string, len(filter.Tags))
			for i, tag := range filter.Tags {
				lowered[i] = strings.ToLower(tag)
			}
			tagSubQuery := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.TaskTag{}).
				Select("1").
				Where("task_tags.task_id = tasks.id").
				Where("LOWER(task_tags.value) IN ?", lowered)
			db = db.Where("EXISTS (?)", tagSubQuery)
		}
		if filter.AssignedTo != "" {
			db = db.Where("tasks.assigned_to = ?", filter.AssignedTo)
		}
		return db
	}
}

// orderClauses builds the ORDER BY list. Enums sort by rank, due dates keep NULLs last,
// and id breaks ties so pages are stable.
func orderClauses(sortBy, order string) []string {
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}

	var primary []string
	switch sortBy {
	case SortUpdatedAt:
		primary = []string{"tasks.updated_at " + direction}
	case SortTitle:
		primary = []string{"tasks.title " + direction}
	case SortStatus:
		primary = []string{rankExpr("tasks.status", statusValues()) + " " + direction}
	case SortPriority:
		primary = []string{rankExpr("tasks.priority", priorityValues()) + " " + direction}
	case SortDueDate:
		primary = []string{"CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END", "tasks.due_date " + direction}
	default:
		primary = []string{"tasks.created_at " + direction}
	}
	return append(primary, "tasks.id "+direction)
}

func rankExpr(column string, values []string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for i, v := range values {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", v, i)
	}
	b.WriteString(" END")
	return b.String()
}

func statusValues() []string {
	out := make([]string, len(models.TaskStatuses))
	for i, s := range models.TaskStatuses {
		out[i] = string(s)
	}
	return out
}

func priorityValues() []string {
	out := make([]string, len(models.TaskPriorities))
	for i, p := range models.TaskPriorities {
		out[i] = string(p)
	}
	return out
}

// Update updates a task's columns. Tags are written by ReplaceTags.
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.conn(ctx).Model(task).
		Omit(clause.Associations).
		Select("title", "description", "status", "priority", "due_date", "assigned_to", "updated_at").
		Updates(task).Error
}

// ReplaceTags deletes the task's tags and inserts tags in order
func (r *GormTaskRepository) ReplaceTags(ctx context.Context, taskID string, tags []string) error {
	db := r.conn(ctx)
	if err := db.Where("task_id = ?", taskID).Delete(&models.TaskTag{}).Error; err != nil {
		return err
	}
	rows := tagRows(taskID, tags)
	if len(rows) == 0 {
		return nil
	}
	return db.Omit(clause.Associations).Create(&rows).Error
}

// SoftDelete marks a task deleted. The row and its children are kept.
func (r *GormTaskRepository) SoftDelete(ctx context.Context, task *models.Task, at time.Time) error {
	return r.conn(ctx).Model(task).
		Select("is_deleted", "deleted_at", "updated_at").
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		}).Error
}

// LoadTags loads tags for all tasks with a single query
func (r *GormTaskRepository) LoadTags(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	var rows []models.TaskTag
	if err := r.conn(ctx).
		Where("task_id IN ?", ids).
		Order("task_id ASC").
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return err
	}

	byTask := make(map[string][]string, len(tasks))
	for _, row := range rows {
		byTask[row.TaskID] = append(byTask[row.TaskID], row.Value)
	}
	for i := range tasks {
		tasks[i].Tags = byTask[tasks[i].ID]
		if tasks[i].Tags == nil {
			tasks[i].Tags = []string{}
		}
	}
	return nil
}

func tagRows(taskID string, tags []string) []models.TaskTag {
	rows := make([]models.TaskTag, len(tags))
	for i, tag := range tags {
		rows[i] = models.TaskTag{TaskID: taskID, Position: i, Value: tag}
	}
	return rows
}
