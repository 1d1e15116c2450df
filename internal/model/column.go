package model

import (
	"github.com/google/uuid"
)

// Column is one lane of a workflow. Order is contiguous from 0 within the
// workflow.
type Column struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	WorkflowID uuid.UUID `gorm:"type:uuid;not null;index"`
	Title      string    `gorm:"not null"`
	Color      string    `gorm:"not null;default:blue"`
	Order      int       `gorm:"column:order;not null"`

	Tasks []Task `gorm:"foreignKey:ColumnID;constraint:OnDelete:CASCADE"`
}
