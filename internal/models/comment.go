package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	TaskID    string    `gorm:"type:varchar(36);not null" json:"task_id"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Task Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
