package files

import (
	"net/http"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/ratelimit"
	"github.com/foldly/foldly/pkg/foldly/respond"
	"github.com/foldly/foldly/pkg/foldly/workspaces"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Handler handles file listing requests for workspace owners
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new files handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// FileResponse represents a file in API responses
type FileResponse struct {
	ID            string  `json:"id"`
	LinkID        *string `json:"link_id,omitempty"`
	Name          string  `json:"name"`
	Size          int64   `json:"size"`
	ContentType   string  `json:"content_type"`
	UploaderName  string  `json:"uploader_name,omitempty"`
	UploaderEmail string  `json:"uploader_email,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func fileToResponse(f models.File) FileResponse {
	return FileResponse{
		ID:            f.ID,
		LinkID:        f.LinkID,
		Name:          f.Name,
		Size:          f.Size,
		ContentType:   f.ContentType,
		UploaderName:  f.UploaderName,
		UploaderEmail: f.UploaderEmail,
		CreatedAt:     f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ListByLink returns files uploaded through a link
// @Summary List a link's files
// @Description Get all files uploaded through a specific link
// @Tags files
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {array} FileResponse
// @Failure 404 {object} respond.Envelope "Link not found"
// @Security BearerAuth
// @Router /links/{id}/files [get]
func (h *Handler) ListByLink(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	linkID := c.Param("id")
	if uuid.Validate(linkID) != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalidFormat, "Invalid link ID")
		return
	}

	ws, err := workspaces.Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return
	}

	link, err := workspaces.AuthorizeLink(h.db, ws, linkID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Link not found or access denied")
		return
	}

	var fs []models.File
	if err := h.db.Where("link_id = ?", link.ID).Order("created_at DESC").Find(&fs).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch files")
		return
	}

	responses := make([]FileResponse, len(fs))
	for i, f := range fs {
		responses[i] = fileToResponse(f)
	}

	respond.OK(c, http.StatusOK, responses)
}

// ListWorkspace returns all files in the caller's workspace, including files
// detached from deleted links
// @Summary List workspace files
// @Description Get all files in the workspace; orphaned=true filters to files whose link was deleted
// @Tags files
// @Produce json
// @Param orphaned query bool false "Only files with no link"
// @Success 200 {array} FileResponse
// @Security BearerAuth
// @Router /files [get]
func (h *Handler) ListWorkspace(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	ws, err := workspaces.Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return
	}

	query := h.db.Where("workspace_id = ?", ws.ID).Order("created_at DESC")
	if c.Query("orphaned") == "true" {
		query = query.Where("link_id IS NULL")
	}

	var fs []models.File
	if err := query.Find(&fs).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch files")
		return
	}

	responses := make([]FileResponse, len(fs))
	for i, f := range fs {
		responses[i] = fileToResponse(f)
	}

	respond.OK(c, http.StatusOK, responses)
}

// RegisterRoutes registers file routes with their rate-limit presets
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rl *ratelimit.Limiter) {
	rg.GET("/links/:id/files", rl.Require("files.list_by_link", ratelimit.Generous), h.ListByLink)
	rg.GET("/files", rl.Require("files.list", ratelimit.Generous), h.ListWorkspace)
}
