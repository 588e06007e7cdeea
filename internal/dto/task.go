package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
	Tags        []string            `json:"tags"`
	AssignedTo  *string             `json:"assigned_to"`
	CreatedBy   string              `json:"created_by"`
	IsDeleted   bool                `json:"is_deleted"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Creator     *UserDTO            `json:"creator"`
	Assignee    *UserDTO            `json:"assignee"`
}

// TaskDetailDTO adds the task's comments and files.
type TaskDetailDTO struct {
	TaskDTO
	Comments []CommentDTO `json:"comments"`
	Files    []FileDTO    `json:"files"`
}

// ToTaskDTO converts a Task model to TaskDTO. Creator and Assignee must already be loaded.
func ToTaskDTO(task models.Task) TaskDTO {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	d := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		Tags:        tags,
		AssignedTo:  task.AssignedTo,
		CreatedBy:   task.CreatedBy,
		IsDeleted:   task.IsDeleted,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Assignee:    ToUserDTOPtr(task.Assignee),
	}
	if task.Creator.ID != "" {
		creator := ToUserDTO(task.Creator)
		d.Creator = &creator
	}
	return d
}

func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}

func ToTaskDetailDTO(task models.Task, comments []models.Comment, files []models.File) TaskDetailDTO {
	return TaskDetailDTO{
		TaskDTO:  ToTaskDTO(task),
		Comments: ToCommentDTOs(comments),
		Files:    ToFileDTOs(files),
	}
}

// TaskDraftDTO is an AI-extracted task that has not been saved.
type TaskDraftDTO struct {
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
	Tags        []string            `json:"tags"`
}
