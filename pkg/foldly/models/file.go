package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Folder groups uploaded files within a workspace. LinkID is nullable: when a
// link is deleted its folders are detached, never destroyed.
type Folder struct {
	ID          string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	WorkspaceID string    `gorm:"type:uuid;not null;index" json:"workspace_id"`
	LinkID      *string   `gorm:"type:uuid;index" json:"link_id,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
}

func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// File is one uploaded object. Uploader fields identify anonymous uploaders
// who came in through a public link. LinkID is nullable for the same
// retention reason as Folder: deleting a sharing endpoint never deletes
// already-uploaded content.
type File struct {
	ID            string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	WorkspaceID   string    `gorm:"type:uuid;not null;index" json:"workspace_id"`
	LinkID        *string   `gorm:"type:uuid;index" json:"link_id,omitempty"`
	FolderID      *string   `gorm:"type:uuid;index" json:"folder_id,omitempty"`
	Name          string    `gorm:"not null" json:"name"`
	Size          int64     `json:"size"`
	ContentType   string    `json:"content_type"`
	StoragePath   string    `gorm:"not null" json:"-"`
	UploaderName  string    `json:"uploader_name,omitempty"`
	UploaderEmail string    `json:"uploader_email,omitempty"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
