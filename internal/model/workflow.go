package model

import (
	"time"

	"github.com/google/uuid"
)

type Workflow struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title     string    `gorm:"not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User    User     `gorm:"foreignKey:UserID"`
	Columns []Column `gorm:"foreignKey:WorkflowID;constraint:OnDelete:CASCADE"`
}
