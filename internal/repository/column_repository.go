package repository

import (
	"context"

	"flowboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// byOrder sorts on the reserved-word "order" column, quoted by the dialect.
var byOrder = clause.OrderByColumn{Column: clause.Column{Name: "order"}}

type ColumnRepository struct {
	db *gorm.DB
}

func NewColumnRepository(db *gorm.DB) *ColumnRepository {
	return &ColumnRepository{db: db}
}

func (r *ColumnRepository) Create(ctx context.Context, column *model.Column) error {
	return r.db.WithContext(ctx).Create(column).Error
}

func (r *ColumnRepository) GetByWorkflowID(ctx context.Context, workflowID uuid.UUID) ([]model.Column, error) {
	var columns []model.Column
	err := r.db.WithContext(ctx).Where("workflow_id = ?", workflowID).Order(byOrder).Find(&columns).Error
	return columns, err
}

// Update writes only the given fields, keyed by column name.
func (r *ColumnRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&model.Column{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrColumnNotFound
	}
	return nil
}

func (r *ColumnRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Column{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrColumnNotFound
	}
	return nil
}
