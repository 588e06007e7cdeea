package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

type CommentDTO struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *UserDTO  `json:"user"`
}

func ToCommentDTO(c models.Comment) CommentDTO {
	d := CommentDTO{
		ID:        c.ID,
		Content:   c.Content,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.User.ID != "" {
		u := ToUserDTO(c.User)
		d.User = &u
	}
	return d
}

func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}
