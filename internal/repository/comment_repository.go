package repository

import (
	"context"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(comment).Error
}

func (r *GormCommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *GormCommentRepository) ListByTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := database.Conn(ctx, r.db).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *GormCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return database.Conn(ctx, r.db).Model(comment).
		Omit(clause.Associations).
		Select("content", "updated_at").
		Updates(comment).Error
}

func (r *GormCommentRepository) Delete(ctx context.Context, id string) error {
	return database.Conn(ctx, r.db).Where("id = ?", id).Delete(&models.Comment{}).Error
}
