package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace is the tenant boundary. Every link belongs to exactly one
// workspace, and every authorization check compares the link's workspace
// against the authenticated user's workspace.
type Workspace struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`

	// Relationships
	User  User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Links []Link `gorm:"foreignKey:WorkspaceID" json:"links,omitempty"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
