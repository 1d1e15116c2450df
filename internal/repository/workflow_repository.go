package repository

import (
	"context"

	"flowboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) Create(ctx context.Context, workflow *model.Workflow) error {
	return r.db.WithContext(ctx).Create(workflow).Error
}

// GetOwned returns the user's workflows, newest first.
func (r *WorkflowRepository) GetOwned(ctx context.Context, userID uuid.UUID) ([]model.Workflow, error) {
	var workflows []model.Workflow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&workflows).Error
	return workflows, err
}

func (r *WorkflowRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	result := r.db.WithContext(ctx).Model(&model.Workflow{}).Where("id = ?", id).Update("title", title)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWorkflowNotFound
	}
	return nil
}

// Delete removes the workflow; columns, tasks and subtasks go with it.
func (r *WorkflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Workflow{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWorkflowNotFound
	}
	return nil
}
