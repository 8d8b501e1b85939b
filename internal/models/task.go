package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a named unit of work owned by a user. A task always carries at
// least one node; the delete path enforces the minimum.
type Task struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string     `gorm:"not null;size:255" json:"name"`
	Nodes     []TaskNode `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"nodes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TaskNode is a single step within a task. Order is unique per task and
// drives display order; CompletedAt is set iff IsCompleted.
type TaskNode struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_task_nodes_task_order" json:"task_id"`
	Description string     `gorm:"not null;type:text" json:"description"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Note        *string    `gorm:"type:text" json:"note,omitempty"`
	Order       int        `gorm:"column:order;not null;default:0;index:idx_task_nodes_task_order" json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
