package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

type FileDTO struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	TaskID       string    `json:"task_id"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
	Uploader     *UserDTO  `json:"uploader"`
}

func ToFileDTO(f models.File) FileDTO {
	d := FileDTO{
		ID:           f.ID,
		Filename:     f.StoredName,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.Size,
		TaskID:       f.TaskID,
		UploadedBy:   f.UploadedBy,
		CreatedAt:    f.CreatedAt,
	}
	if f.Uploader.ID != "" {
		u := ToUserDTO(f.Uploader)
		d.Uploader = &u
	}
	return d
}

func ToFileDTOs(files []models.File) []FileDTO {
	out := make([]FileDTO, len(files))
	for i, f := range files {
		out[i] = ToFileDTO(f)
	}
	return out
}
