// Package policy holds the ownership rules for mutating tasks, comments and files.
// Every function is a pure decision over the actor id and the entity.
package policy

import "github.com/yukikurage/taskflow-api/internal/models"

// CanUpdateTask allows the creator or the current assignee.
func CanUpdateTask(actorID string, task *models.Task) bool {
	if actorID == "" {
		return false
	}
	if task.CreatedBy == actorID {
		return true
	}
	return task.AssignedTo != nil && *task.AssignedTo == actorID
}

// CanDeleteTask allows the creator only.
func CanDeleteTask(actorID string, task *models.Task) bool {
	return actorID != "" && task.CreatedBy == actorID
}

// CanModifyComment allows the comment author only.
func CanModifyComment(actorID string, comment *models.Comment) bool {
	return actorID != "" && comment.UserID == actorID
}

// CanDeleteFile allows the uploader or the creator of the task the file belongs to.
func CanDeleteFile(actorID string, file *models.File, task *models.Task) bool {
	if actorID == "" {
		return false
	}
	if file.UploadedBy == actorID {
		return true
	}
	return task != nil && task.CreatedBy == actorID
}
