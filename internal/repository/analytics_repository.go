package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormAnalyticsRepository is a GORM implementation of AnalyticsRepository.
// Date arithmetic is left to the caller so the queries stay portable across dialects.
type GormAnalyticsRepository struct {
	db    *gorm.DB
	tasks TaskRepository
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db *gorm.DB, tasks TaskRepository) AnalyticsRepository {
	return &GormAnalyticsRepository{db: db, tasks: tasks}
}

func (r *GormAnalyticsRepository) live(ctx context.Context, assignee string) *gorm.DB {
	return database.Conn(ctx, r.db).
		Model(&models.Task{}).
		Scopes(database.LiveTasks, database.AssignedTo(assignee))
}

func (r *GormAnalyticsRepository) CountByStatus(ctx context.Context, assignee string) ([]GroupCount, error) {
	return r.countBy(ctx, assignee, "status")
}

func (r *GormAnalyticsRepository) CountByPriority(ctx context.Context, assignee string) ([]GroupCount, error) {
	return r.countBy(ctx, assignee, "priority")
}

// countBy groups on a fixed column name, never on client input.
func (r *GormAnalyticsRepository) countBy(ctx context.Context, assignee, column string) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.live(ctx, assignee).
		Select("tasks." + column + " AS group_key, COUNT(*) AS total").
		Group("tasks." + column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormAnalyticsRepository) OpenDueDates(ctx context.Context, assignee string) ([]time.Time, error) {
	var dates []time.Time
	err := r.live(ctx, assignee).
		Where("tasks.status <> ?", models.TaskStatusDone).
		Where("tasks.due_date IS NOT NULL").
		Pluck("tasks.due_date", &dates).Error
	if err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *GormAnalyticsRepository) CompletedAssigned(ctx context.Context, assignee string) ([]CompletionRow, error) {
	var rows []CompletionRow
	err := r.live(ctx, assignee).
		Select("tasks.assigned_to, tasks.created_at, tasks.updated_at").
		Where("tasks.status = ?", models.TaskStatusDone).
		Where("tasks.assigned_to IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormAnalyticsRepository) CreatedSince(ctx context.Context, assignee string, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.live(ctx, assignee).
		Where("tasks.created_at >= ?", since).
		Pluck("tasks.created_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *GormAnalyticsRepository) CompletedSince(ctx context.Context, assignee string, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.live(ctx, assignee).
		Where("tasks.status = ?", models.TaskStatusDone).
		Where("tasks.updated_at >= ?", since).
		Pluck("tasks.updated_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (r *GormAnalyticsRepository) ExportTasks(ctx context.Context, assignee string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := r.live(ctx, assignee).
		Order("tasks.created_at DESC").
		Order("tasks.id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	if err := r.tasks.LoadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
