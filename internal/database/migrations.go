package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// indexes backs the task list filters, sort keys, and child lookups.
var indexes = []index{
	{"tasks", "idx_tasks_live_created_at", "is_deleted, created_at"},
	{"tasks", "idx_tasks_status", "status"},
	{"tasks", "idx_tasks_priority", "priority"},
	{"tasks", "idx_tasks_due_date", "due_date"},
	{"tasks", "idx_tasks_assigned_to", "assigned_to"},
	{"tasks", "idx_tasks_created_by", "created_by"},

	{"task_tags", "idx_task_tags_value", "value"},

	{"comments", "idx_comments_task_id", "task_id"},
	{"files", "idx_files_task_id", "task_id"},
}

// EnsureIndexes creates any missing secondary index. It is safe to run repeatedly.
func EnsureIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}
