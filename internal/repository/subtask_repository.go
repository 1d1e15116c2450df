package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowboard/internal/model"
)

type SubtaskRepository struct {
	db *gorm.DB
}

func NewSubtaskRepository(db *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{db: db}
}

func (r *SubtaskRepository) Create(ctx context.Context, subtask *model.Subtask) error {
	return r.db.WithContext(ctx).Create(subtask).Error
}

func (r *SubtaskRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&model.Subtask{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubtaskNotFound
	}
	return nil
}

func (r *SubtaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Subtask{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubtaskNotFound
	}
	return nil
}
