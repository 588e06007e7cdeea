package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskStatuses lists every status in workflow order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

func (s TaskStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the position of s in workflow order, or -1 for unknown values.
func (s TaskStatus) Rank() int {
	for i, v := range TaskStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// TaskPriorities lists every priority from lowest to highest.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

func (p TaskPriority) Valid() bool {
	return p.Rank() >= 0
}

func (p TaskPriority) Rank() int {
	for i, v := range TaskPriorities {
		if v == p {
			return i
		}
	}
	return -1
}

// Task references users by id only. Related rows are loaded in batches by the repositories.
type Task struct {
	ID          string       `gorm:"type:varchar(36);primarykey" json:"id"`
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description *string      `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	DueDate     *time.Time   `json:"due_date"`
	AssignedTo  *string      `gorm:"type:varchar(36)" json:"assigned_to"`
	CreatedBy   string       `gorm:"type:varchar(36);not null" json:"created_by"`
	IsDeleted   bool         `gorm:"not null;default:false" json:"-"`
	DeletedAt   *time.Time   `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Tags is populated by the repositories, never by GORM associations.
	Tags []string `gorm:"-" json:"tags"`

	Assignee *User `gorm:"foreignKey:AssignedTo" json:"-"`
	Creator  User  `gorm:"foreignKey:CreatedBy" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TaskTag is one element of a task's ordered tag list.
type TaskTag struct {
	TaskID   string `gorm:"type:varchar(36);primaryKey"`
	Position int    `gorm:"primaryKey;autoIncrement:false"`
	Value    string `gorm:"type:varchar(100);not null"`

	Task Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}
