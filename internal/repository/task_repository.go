package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowboard/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetWithSubtasks retrieves the tasks of the given columns with their
// subtasks, both sorted by order
func (r *TaskRepository) GetWithSubtasks(ctx context.Context, columnIDs []uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	if len(columnIDs) == 0 {
		return tasks, nil
	}
	result := r.db.WithContext(ctx).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order(byOrder) }).
		Where("column_id IN ?", columnIDs).
		Order(byOrder).
		Find(&tasks)

	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// Update writes only the given fields of a task
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task by its ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
