package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is the metadata row for an uploaded blob. StoredName is the blob store key.
type File struct {
	ID           string    `gorm:"type:varchar(36);primarykey" json:"id"`
	StoredName   string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"original_name"`
	MimeType     string    `gorm:"type:varchar(100);not null" json:"mime_type"`
	Size         int64     `gorm:"not null" json:"size"`
	TaskID       string    `gorm:"type:varchar(36);not null" json:"task_id"`
	UploadedBy   string    `gorm:"type:varchar(36);not null" json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`

	Task     Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Uploader User `gorm:"foreignKey:UploadedBy" json:"-"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
