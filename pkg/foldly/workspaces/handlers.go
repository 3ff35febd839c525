package workspaces

import (
	"errors"
	"net/http"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/respond"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles workspace requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new workspaces handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateWorkspaceRequest represents the onboarding request body
type CreateWorkspaceRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// WorkspaceResponse represents a workspace in API responses
type WorkspaceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func workspaceToResponse(ws models.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:        ws.ID,
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Create completes onboarding by creating the caller's workspace
// @Summary Create workspace
// @Description Complete onboarding by creating the caller's workspace (one per user)
// @Tags workspaces
// @Accept json
// @Produce json
// @Param request body CreateWorkspaceRequest true "Workspace details"
// @Success 201 {object} WorkspaceResponse
// @Failure 409 {object} respond.Envelope "Workspace already exists"
// @Security BearerAuth
// @Router /workspaces [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	if _, err := Resolve(h.db, userID); err == nil {
		respond.Fail(c, http.StatusConflict, respond.CodeAlreadyExists, "Workspace already exists")
		return
	}

	ws := models.Workspace{UserID: userID, Name: req.Name}
	if err := h.db.Create(&ws).Error; err != nil {
		// Concurrent onboarding: the user_id unique index fires when two
		// requests pass the pre-check together.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Fail(c, http.StatusConflict, respond.CodeAlreadyExists, "Workspace already exists")
			return
		}
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to create workspace")
		return
	}

	respond.OK(c, http.StatusCreated, workspaceToResponse(ws))
}

// Me returns the caller's workspace
// @Summary Get current workspace
// @Description Resolve the authenticated user's workspace
// @Tags workspaces
// @Produce json
// @Success 200 {object} WorkspaceResponse
// @Failure 404 {object} respond.Envelope "Workspace not found"
// @Security BearerAuth
// @Router /workspaces/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	ws, err := Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return
	}

	respond.OK(c, http.StatusOK, workspaceToResponse(*ws))
}

// RegisterRoutes registers workspace routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/workspaces", h.Create)
	rg.GET("/workspaces/me", h.Me)
}
