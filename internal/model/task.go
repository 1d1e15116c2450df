package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ColumnID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	Order       int       `gorm:"column:order;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`

	Subtasks []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}
