package services

import (
	"fmt"

	"github.com/yukikurage/taskflow-api/internal/constants"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
)

// Task errors
var (
	ErrTaskNotFound        = apierrors.NotFound("Task not found")
	ErrTaskUpdateForbidden = apierrors.Forbidden("You can only update tasks you created or are assigned to")
	ErrTaskDeleteForbidden = apierrors.Forbidden("Only the task creator can delete this task")
	ErrAssigneeNotFound    = apierrors.BadRequest("Assigned user does not exist")
	ErrBulkEmpty           = apierrors.BadRequest("At least one task is required")
	ErrBulkTooLarge        = apierrors.BadRequest(fmt.Sprintf("Cannot create more than %d tasks at once", constants.MaxBulkCreateTasks))
	ErrTitleRequired       = apierrors.Validation("Title is required")
	ErrTitleTooLong        = apierrors.Validation(fmt.Sprintf("Title must be at most %d characters", constants.MaxTitleLength))
	ErrInvalidStatus       = apierrors.Validation("Status must be one of TODO, IN_PROGRESS, DONE")
	ErrInvalidPriority     = apierrors.Validation("Priority must be one of LOW, MEDIUM, HIGH")
)

// Comment errors
var (
	ErrCommentNotFound        = apierrors.NotFound("Comment not found")
	ErrCommentUpdateForbidden = apierrors.Forbidden("You can only edit your own comments")
	ErrCommentDeleteForbidden = apierrors.Forbidden("You can only delete your own comments")
	ErrCommentContentRequired = apierrors.Validation("Content is required")
	ErrCommentTooLong         = apierrors.Validation(fmt.Sprintf("Content must be at most %d characters", constants.MaxCommentLength))
)

// File errors
var (
	ErrFileNotFound        = apierrors.NotFound("File not found")
	ErrFileBlobMissing     = apierrors.NotFound("File not found in storage")
	ErrFileDeleteForbidden = apierrors.Forbidden("Only the uploader or task creator can delete this file")
	ErrNoFiles             = apierrors.BadRequest("No files provided")
	ErrFileNameRequired    = apierrors.BadRequest("File must have a name")
)

// Auth errors
var (
	ErrEmailTaken          = apierrors.Conflict("Email already registered")
	ErrInvalidCredentials  = apierrors.Unauthorized("Invalid email or password")
	ErrInvalidRefreshToken = apierrors.Unauthorized("Invalid or expired refresh token")
	ErrUserNotFound        = apierrors.Unauthorized("User not found")
)

// AI errors
var (
	ErrAIServiceNotConfigured = apierrors.ServiceUnavailable("AI service is not configured")
	ErrAINoTasksGenerated     = apierrors.BadRequest("AI did not generate any tasks")
	ErrAIUnavailable          = apierrors.ServiceUnavailable("AI service request failed")
)

// fieldNotNullable reports an explicit null for a required column.
func fieldNotNullable(field string) error {
	return apierrors.Validation(fmt.Sprintf("%s cannot be null", field))
}
