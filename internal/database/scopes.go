package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// LiveTasks excludes soft-deleted tasks.
func LiveTasks(db *gorm.DB) *gorm.DB {
	return db.Where("tasks.is_deleted = ?", false)
}

// AssignedTo narrows a task query to one assignee when userID is non-empty.
func AssignedTo(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if userID == "" {
			return db
		}
		return db.Where("tasks.assigned_to = ?", userID)
	}
}
