package permissions

import (
	"errors"
	"net/http"
	"sort"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/ratelimit"
	"github.com/foldly/foldly/pkg/foldly/respond"
	"github.com/foldly/foldly/pkg/foldly/workspaces"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handler handles permission lifecycle requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new permissions handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// AddPermissionRequest represents a request to grant a role. The owner role
// cannot be granted through this path; it exists only via link creation.
type AddPermissionRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=editor uploader"`
}

// UpdatePermissionRequest represents a request to change a grant's role
type UpdatePermissionRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=editor uploader"`
}

// PermissionResponse represents a permission in API responses
type PermissionResponse struct {
	ID         string `json:"id"`
	LinkID     string `json:"link_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	CreatedAt  string `json:"created_at"`
}

func permissionToResponse(p models.Permission) PermissionResponse {
	return PermissionResponse{
		ID:         p.ID,
		LinkID:     p.LinkID,
		Email:      p.Email,
		Role:       string(p.Role),
		IsVerified: p.IsVerified,
		CreatedAt:  p.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ownedLink authorizes the link in the :id path param against the caller's
// workspace, writing the response on failure.
func (h *Handler) ownedLink(c *gin.Context) (*models.Link, bool) {
	userID, _ := auth.GetUserID(c)

	linkID := c.Param("id")
	if uuid.Validate(linkID) != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalidFormat, "Invalid link ID")
		return nil, false
	}

	ws, err := workspaces.Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return nil, false
	}

	link, err := workspaces.AuthorizeLink(h.db, ws, linkID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Link not found or access denied")
		return nil, false
	}

	return link, true
}

// List returns all permissions for a link, owner first
// @Summary List link permissions
// @Description Get all permission grants for a link; the owner row sorts first
// @Tags permissions
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {array} PermissionResponse
// @Failure 404 {object} respond.Envelope "Link not found"
// @Security BearerAuth
// @Router /links/{id}/permissions [get]
func (h *Handler) List(c *gin.Context) {
	link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	var perms []models.Permission
	if err := h.db.Where("link_id = ?", link.ID).Order("created_at ASC").Find(&perms).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch permissions")
		return
	}

	// Owner first is a display nicety, not a storage invariant.
	sort.SliceStable(perms, func(i, j int) bool {
		return perms[i].Role == models.RoleOwner && perms[j].Role != models.RoleOwner
	})

	responses := make([]PermissionResponse, len(perms))
	for i, p := range perms {
		responses[i] = permissionToResponse(p)
	}

	respond.OK(c, http.StatusOK, responses)
}

// Add grants an editor or uploader role to an email
// @Summary Add a permission
// @Description Grant an email an editor or uploader role on a link
// @Tags permissions
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param request body AddPermissionRequest true "Grant details"
// @Success 201 {object} PermissionResponse
// @Failure 409 {object} respond.Envelope "Permission already exists"
// @Security BearerAuth
// @Router /links/{id}/permissions [post]
func (h *Handler) Add(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	var req AddPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	email := auth.NormalizeEmail(req.Email)

	// A duplicate grant must fail, never overwrite the existing row.
	var existing models.Permission
	if err := h.db.Where("link_id = ? AND email = ?", link.ID, email).First(&existing).Error; err == nil {
		respond.Fail(c, http.StatusConflict, respond.CodeAlreadyExists, "A permission for this email already exists")
		return
	}

	perm := models.Permission{
		LinkID: link.ID,
		Email:  email,
		Role:   models.PermissionRole(req.Role),
	}

	if err := h.db.Create(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Fail(c, http.StatusConflict, respond.CodeAlreadyExists, "A permission for this email already exists")
			return
		}
		log.Error().Err(err).
			Str("user_id", userID).
			Str("link_id", link.ID).
			Str("action", "permissions.add").
			Msg("permission insert failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to add permission")
		return
	}

	respond.OK(c, http.StatusCreated, permissionToResponse(perm))
}

// UpdateRole changes a grant's role
// @Summary Update a permission's role
// @Description Change an email's role between editor and uploader; the owner row is immutable
// @Tags permissions
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param request body UpdatePermissionRequest true "New role"
// @Success 200 {object} PermissionResponse
// @Failure 403 {object} respond.Envelope "Owner permission is immutable"
// @Failure 404 {object} respond.Envelope "Permission not found"
// @Security BearerAuth
// @Router /links/{id}/permissions [patch]
func (h *Handler) UpdateRole(c *gin.Context) {
	link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	var req UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	email := auth.NormalizeEmail(req.Email)

	var perm models.Permission
	if err := h.db.Where("link_id = ? AND email = ?", link.ID, email).First(&perm).Error; err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Permission not found")
		return
	}

	if perm.Role == models.RoleOwner {
		respond.Fail(c, http.StatusForbidden, respond.CodeCannotModifyOwner, "The owner permission cannot be modified")
		return
	}

	perm.Role = models.PermissionRole(req.Role)
	if err := h.db.Save(&perm).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to update permission")
		return
	}

	respond.OK(c, http.StatusOK, permissionToResponse(perm))
}

// Remove deletes a grant
// @Summary Remove a permission
// @Description Remove an email's grant from a link; the owner row cannot be removed
// @Tags permissions
// @Produce json
// @Param id path string true "Link ID"
// @Param email query string true "Email of the grant to remove"
// @Success 200 {object} map[string]string "Permission removed"
// @Failure 403 {object} respond.Envelope "Owner permission is immutable"
// @Failure 404 {object} respond.Envelope "Permission not found"
// @Security BearerAuth
// @Router /links/{id}/permissions [delete]
func (h *Handler) Remove(c *gin.Context) {
	link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	email := auth.NormalizeEmail(c.Query("email"))
	if email == "" {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, "Email query parameter is required")
		return
	}

	var perm models.Permission
	if err := h.db.Where("link_id = ? AND email = ?", link.ID, email).First(&perm).Error; err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Permission not found")
		return
	}

	if perm.Role == models.RoleOwner {
		respond.Fail(c, http.StatusForbidden, respond.CodeCannotModifyOwner, "The owner permission cannot be removed")
		return
	}

	if err := h.db.Delete(&perm).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to remove permission")
		return
	}

	respond.OK(c, http.StatusOK, gin.H{"message": "Permission removed"})
}

// RegisterRoutes registers permission routes with their rate-limit presets
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rl *ratelimit.Limiter) {
	rg.GET("/links/:id/permissions", rl.Require("permissions.list", ratelimit.Generous), h.List)
	rg.POST("/links/:id/permissions", rl.Require("permissions.add", ratelimit.Moderate), h.Add)
	rg.PATCH("/links/:id/permissions", rl.Require("permissions.update", ratelimit.Moderate), h.UpdateRole)
	rg.DELETE("/links/:id/permissions", rl.Require("permissions.remove", ratelimit.Moderate), h.Remove)
}
