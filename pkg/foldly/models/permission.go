package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionRole represents an email's role on a link
type PermissionRole string

const (
	RoleOwner    PermissionRole = "owner"
	RoleEditor   PermissionRole = "editor"
	RoleUploader PermissionRole = "uploader"
)

// Permission grants an email address a role on a link. Exactly one owner row
// exists per link; it is inserted in the same transaction as the link itself
// and cannot be removed or re-roled through the permission API. The composite
// unique index rejects a second grant for the same (link, email) pair.
type Permission struct {
	ID         string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	LinkID     string         `gorm:"type:uuid;not null;uniqueIndex:idx_link_email" json:"link_id"`
	Email      string         `gorm:"not null;uniqueIndex:idx_link_email" json:"email"`
	Role       PermissionRole `gorm:"type:varchar(20);not null" json:"role"`
	IsVerified bool           `gorm:"default:false" json:"is_verified"`
	VerifiedAt *time.Time     `json:"verified_at,omitempty"`

	// Relationships
	Link Link `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
