package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Link represents a shareable file-upload endpoint. The slug is unique across
// all links in the system; uniqueness is enforced by the database index, not
// by application-level locking. Links are hard-deleted so a removed slug is
// immediately free again.
type Link struct {
	ID          string     `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	WorkspaceID string     `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Name        string     `gorm:"not null" json:"name"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	IsPublic    bool       `gorm:"default:false" json:"is_public"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	Config      LinkConfig `gorm:"serializer:json" json:"config"`
	Branding    Branding   `gorm:"serializer:json" json:"branding"`

	// Relationships
	Workspace   Workspace    `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Permissions []Permission `gorm:"foreignKey:LinkID" json:"permissions,omitempty"`
}

// LinkConfig holds per-link upload behavior. PasswordHash is a bcrypt hash;
// the raw password never persists.
type LinkConfig struct {
	NotifyOnUpload    bool       `json:"notify_on_upload"`
	CustomMessage     string     `json:"custom_message,omitempty"`
	RequiresName      bool       `json:"requires_name"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	PasswordProtected bool       `json:"password_protected"`
	PasswordHash      string     `json:"password_hash,omitempty"`
}

// Branding holds per-link presentation settings shown on the public upload page.
type Branding struct {
	Enabled bool           `json:"enabled"`
	Logo    BrandingLogo   `json:"logo"`
	Colors  BrandingColors `json:"colors"`
}

type BrandingLogo struct {
	URL     string `json:"url,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

// BrandingColors are 6-digit hex values, e.g. "#1a2b3c".
type BrandingColors struct {
	AccentColor     string `json:"accent_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
}

// Expired reports whether the link's configured expiry has passed.
func (l *Link) Expired(now time.Time) bool {
	return l.Config.ExpiresAt != nil && l.Config.ExpiresAt.Before(now)
}

func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
