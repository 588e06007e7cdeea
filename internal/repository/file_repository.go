package repository

import (
	"context"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFileRepository is a GORM implementation of FileRepository
type GormFileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *gorm.DB) FileRepository {
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) CreateMany(ctx context.Context, files []*models.File) error {
	if len(files) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(&files).Error
}

func (r *GormFileRepository) FindByID(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *GormFileRepository) ListByTask(ctx context.Context, taskID string) ([]models.File, error) {
	files := []models.File{}
	err := database.Conn(ctx, r.db).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *GormFileRepository) Delete(ctx context.Context, id string) error {
	return database.Conn(ctx, r.db).Where("id = ?", id).Delete(&models.File{}).Error
}
