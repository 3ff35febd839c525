package workspaces

import (
	"errors"

	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	// ErrNoWorkspace means the user has not completed onboarding.
	ErrNoWorkspace = errors.New("workspace not found")
	// ErrLinkNotFound means the link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrLinkForbidden means the link exists but belongs to another workspace.
	// Callers must present this identically to ErrLinkNotFound; the
	// distinction exists only for the audit log.
	ErrLinkForbidden = errors.New("link belongs to another workspace")
)

// Resolve returns the workspace owned by the given user.
func Resolve(db *gorm.DB, userID string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := db.Where("user_id = ?", userID).First(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoWorkspace
		}
		return nil, err
	}
	return &ws, nil
}

// AuthorizeLink fetches a link and verifies it belongs to the given
// workspace. Missing links and cross-workspace links surface as distinct
// errors here, but the HTTP layer renders both with the same generic
// message; the precise reason is logged for audit.
func AuthorizeLink(db *gorm.DB, ws *models.Workspace, linkID string) (*models.Link, error) {
	var link models.Link
	if err := db.First(&link, "id = ?", linkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().
				Str("link_id", linkID).
				Str("workspace_id", ws.ID).
				Msg("authorization failed: link does not exist")
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if link.WorkspaceID != ws.ID {
		log.Warn().
			Str("link_id", linkID).
			Str("attempted_workspace_id", ws.ID).
			Str("actual_workspace_id", link.WorkspaceID).
			Msg("authorization failed: cross-workspace access attempt")
		return nil, ErrLinkForbidden
	}

	return &link, nil
}
