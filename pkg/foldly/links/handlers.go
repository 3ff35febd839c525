package links

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/ratelimit"
	"github.com/foldly/foldly/pkg/foldly/respond"
	"github.com/foldly/foldly/pkg/foldly/storage"
	"github.com/foldly/foldly/pkg/foldly/workspaces"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Handler handles link lifecycle requests
type Handler struct {
	db    *gorm.DB
	store storage.Client
}

// NewHandler creates a new links handler
func NewHandler(db *gorm.DB, store storage.Client) *Handler {
	return &Handler{db: db, store: store}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=255"`
	Slug     string `json:"slug" binding:"required"`
	IsPublic bool   `json:"is_public"`
}

// UpdateLinkRequest represents the request to update a link
type UpdateLinkRequest struct {
	Name     string `json:"name" binding:"omitempty,min=3,max=255"`
	Slug     string `json:"slug"`
	IsPublic *bool  `json:"is_public"`
	IsActive *bool  `json:"is_active"`
}

// UpdateConfigRequest represents the request to update a link's config
type UpdateConfigRequest struct {
	NotifyOnUpload    *bool      `json:"notify_on_upload"`
	CustomMessage     *string    `json:"custom_message" binding:"omitempty,max=500"`
	RequiresName      *bool      `json:"requires_name"`
	ExpiresAt         *time.Time `json:"expires_at"`
	PasswordProtected *bool      `json:"password_protected"`
	Password          string     `json:"password"`
}

// UpdateBrandingRequest represents the request to update a link's branding
type UpdateBrandingRequest struct {
	Enabled         *bool   `json:"enabled"`
	LogoAltText     *string `json:"logo_alt_text"`
	AccentColor     *string `json:"accent_color"`
	BackgroundColor *string `json:"background_color"`
}

// ConfigResponse is the link config without the password hash
type ConfigResponse struct {
	NotifyOnUpload    bool       `json:"notify_on_upload"`
	CustomMessage     string     `json:"custom_message,omitempty"`
	RequiresName      bool       `json:"requires_name"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	PasswordProtected bool       `json:"password_protected"`
}

// LinkResponse represents a link in API responses
type LinkResponse struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	IsPublic    bool            `json:"is_public"`
	IsActive    bool            `json:"is_active"`
	Config      ConfigResponse  `json:"config"`
	Branding    models.Branding `json:"branding"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func linkToResponse(link models.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		WorkspaceID: link.WorkspaceID,
		Name:        link.Name,
		Slug:        link.Slug,
		IsPublic:    link.IsPublic,
		IsActive:    link.IsActive,
		Config: ConfigResponse{
			NotifyOnUpload:    link.Config.NotifyOnUpload,
			CustomMessage:     link.Config.CustomMessage,
			RequiresName:      link.Config.RequiresName,
			ExpiresAt:         link.Config.ExpiresAt,
			PasswordProtected: link.Config.PasswordProtected,
		},
		Branding:  link.Branding,
		CreatedAt: link.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: link.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// slugAvailable checks whether a sanitized slug is unclaimed. This is the
// optimistic pre-check; the unique index remains the source of truth and the
// insert path still handles the constraint violation.
func (h *Handler) slugAvailable(slug string, excludeID string) (bool, error) {
	query := h.db.Model(&models.Link{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// ownedLink resolves the caller's workspace and authorizes the link in the
// :id path param. On failure it writes the response and returns ok=false.
// Missing and cross-workspace links get the same external answer.
func (h *Handler) ownedLink(c *gin.Context) (*models.Workspace, *models.Link, bool) {
	userID, _ := auth.GetUserID(c)

	linkID := c.Param("id")
	if uuid.Validate(linkID) != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeInvalidFormat, "Invalid link ID")
		return nil, nil, false
	}

	ws, err := workspaces.Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return nil, nil, false
	}

	link, err := workspaces.AuthorizeLink(h.db, ws, linkID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Link not found or access denied")
		return nil, nil, false
	}

	return ws, link, true
}

// CheckSlug reports whether a slug is available
// @Summary Check slug availability
// @Description Check whether a slug is available for a new link
// @Tags links
// @Produce json
// @Param slug query string true "Raw slug to check"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.Envelope "Invalid slug"
// @Security BearerAuth
// @Router /links/slug/check [get]
func (h *Handler) CheckSlug(c *gin.Context) {
	slug := SanitizeSlug(c.Query("slug"))
	if err := ValidateSlug(slug); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	available, err := h.slugAvailable(slug, "")
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to check slug")
		return
	}

	respond.OK(c, http.StatusOK, gin.H{"slug": slug, "available": available})
}

// Create creates a new upload link
// @Summary Create a link
// @Description Create a new upload link; the owner permission is inserted in the same transaction
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} respond.Envelope "Validation error"
// @Failure 409 {object} respond.Envelope "Slug taken"
// @Security BearerAuth
// @Router /links [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	email, ok := auth.GetEmail(c)
	if !ok || email == "" {
		respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthenticated, "Caller email unknown")
		return
	}

	ws, err := workspaces.Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	slug := SanitizeSlug(req.Slug)
	if err := ValidateSlug(slug); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	// Optimistic pre-check for fast feedback. The insert below still
	// catches the race where another request claims the slug in between.
	available, err := h.slugAvailable(slug, "")
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to check slug")
		return
	}
	if !available {
		respond.Fail(c, http.StatusConflict, respond.CodeSlugTaken, "This slug is already taken")
		return
	}

	link := models.Link{
		WorkspaceID: ws.ID,
		Name:        req.Name,
		Slug:        slug,
		IsPublic:    req.IsPublic,
		IsActive:    true,
	}

	// The link and its owner permission are created atomically: there is no
	// state where a link exists without exactly one verified owner row.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&link).Error; err != nil {
			return err
		}

		now := time.Now()
		owner := models.Permission{
			LinkID:     link.ID,
			Email:      auth.NormalizeEmail(email),
			Role:       models.RoleOwner,
			IsVerified: true,
			VerifiedAt: &now,
		}
		return tx.Create(&owner).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Fail(c, http.StatusConflict, respond.CodeSlugTaken, "This slug is already taken")
			return
		}
		log.Error().Err(err).
			Str("user_id", userID).
			Str("slug", slug).
			Str("action", "links.create").
			Msg("link creation transaction failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to create link")
		return
	}

	respond.OK(c, http.StatusCreated, linkToResponse(link))
}

// List returns all links in the caller's workspace
// @Summary List links
// @Description Get all links in the caller's workspace
// @Tags links
// @Produce json
// @Success 200 {array} LinkResponse
// @Security BearerAuth
// @Router /links [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	ws, err := workspaces.Resolve(h.db, userID)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeWorkspaceNotFound, "Workspace not found, complete onboarding first")
		return
	}

	var links []models.Link
	if err := h.db.Where("workspace_id = ?", ws.ID).Order("created_at DESC").Find(&links).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch links")
		return
	}

	responses := make([]LinkResponse, len(links))
	for i, link := range links {
		responses[i] = linkToResponse(link)
	}

	respond.OK(c, http.StatusOK, responses)
}

// Get returns a link by ID
// @Summary Get a link
// @Description Get a link owned by the caller's workspace
// @Tags links
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} respond.Envelope "Link not found"
// @Security BearerAuth
// @Router /links/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	_, link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	respond.OK(c, http.StatusOK, linkToResponse(*link))
}

// Update updates a link's name, slug, visibility or active flag
// @Summary Update a link
// @Description Update an existing link; a slug change is re-validated
// @Tags links
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param request body UpdateLinkRequest true "Updated link details"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} respond.Envelope "Validation error"
// @Failure 409 {object} respond.Envelope "Slug taken"
// @Security BearerAuth
// @Router /links/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	_, link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	if req.Slug != "" {
		slug := SanitizeSlug(req.Slug)
		if slug != link.Slug {
			if err := ValidateSlug(slug); err != nil {
				respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
				return
			}
			available, err := h.slugAvailable(slug, link.ID)
			if err != nil {
				respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to check slug")
				return
			}
			if !available {
				respond.Fail(c, http.StatusConflict, respond.CodeSlugTaken, "This slug is already taken")
				return
			}
			link.Slug = slug
		}
	}

	if req.Name != "" {
		link.Name = req.Name
	}
	if req.IsPublic != nil {
		link.IsPublic = *req.IsPublic
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	if err := h.db.Save(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respond.Fail(c, http.StatusConflict, respond.CodeSlugTaken, "This slug is already taken")
			return
		}
		log.Error().Err(err).
			Str("user_id", userID).
			Str("link_id", link.ID).
			Str("action", "links.update").
			Msg("link update failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to update link")
		return
	}

	respond.OK(c, http.StatusOK, linkToResponse(*link))
}

// Delete deletes a link while preserving uploaded content
// @Summary Delete a link
// @Description Delete a link; its permissions are removed and uploaded files are detached, not deleted
// @Tags links
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} map[string]string "Link deleted"
// @Failure 404 {object} respond.Envelope "Link not found"
// @Security BearerAuth
// @Router /links/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	_, link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	// Deleting a sharing endpoint must never destroy already-uploaded
	// content: file and folder rows are detached, permission rows removed,
	// then the link itself goes.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Where("link_id = ?", link.ID).
			Update("link_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Folder{}).Where("link_id = ?", link.ID).
			Update("link_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("link_id = ?", link.ID).Delete(&models.Permission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Link{}, "id = ?", link.ID).Error
	})

	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("link_id", link.ID).
			Str("action", "links.delete").
			Msg("link deletion transaction failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to delete link")
		return
	}

	respond.OK(c, http.StatusOK, gin.H{"message": "Link deleted"})
}

// UpdateConfig updates the link's config sub-object only
// @Summary Update link config
// @Description Update the link's upload configuration
// @Tags links
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param request body UpdateConfigRequest true "Config changes"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} respond.Envelope "Link not found"
// @Security BearerAuth
// @Router /links/{id}/config [patch]
func (h *Handler) UpdateConfig(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	_, link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	if req.NotifyOnUpload != nil {
		link.Config.NotifyOnUpload = *req.NotifyOnUpload
	}
	if req.CustomMessage != nil {
		link.Config.CustomMessage = *req.CustomMessage
	}
	if req.RequiresName != nil {
		link.Config.RequiresName = *req.RequiresName
	}
	if req.ExpiresAt != nil {
		link.Config.ExpiresAt = req.ExpiresAt
	}
	if req.PasswordProtected != nil {
		link.Config.PasswordProtected = *req.PasswordProtected
		if !*req.PasswordProtected {
			link.Config.PasswordHash = ""
		}
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to process password")
			return
		}
		link.Config.PasswordHash = hash
		link.Config.PasswordProtected = true
	}

	if err := h.db.Save(link).Error; err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("link_id", link.ID).
			Str("action", "links.update_config").
			Msg("config update failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to update config")
		return
	}

	respond.OK(c, http.StatusOK, linkToResponse(*link))
}

// UpdateBranding merges branding settings into the link
// @Summary Update link branding
// @Description Update the link's branding colors, enabled flag and logo alt text
// @Tags links
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param request body UpdateBrandingRequest true "Branding changes"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} respond.Envelope "Invalid color"
// @Security BearerAuth
// @Router /links/{id}/branding [patch]
func (h *Handler) UpdateBranding(c *gin.Context) {
	_, link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	var req UpdateBrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	if req.AccentColor != nil && *req.AccentColor != "" && !hexColorRegex.MatchString(*req.AccentColor) {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, "Accent color must be a 6-digit hex value")
		return
	}
	if req.BackgroundColor != nil && *req.BackgroundColor != "" && !hexColorRegex.MatchString(*req.BackgroundColor) {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, "Background color must be a 6-digit hex value")
		return
	}

	if req.Enabled != nil {
		link.Branding.Enabled = *req.Enabled
	}
	if req.LogoAltText != nil {
		link.Branding.Logo.AltText = *req.LogoAltText
	}
	if req.AccentColor != nil {
		link.Branding.Colors.AccentColor = *req.AccentColor
	}
	if req.BackgroundColor != nil {
		link.Branding.Colors.BackgroundColor = *req.BackgroundColor
	}

	if err := h.db.Save(link).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to update branding")
		return
	}

	respond.OK(c, http.StatusOK, linkToResponse(*link))
}

// UploadLogo stores a branding logo and merges its URL into the link
// @Summary Upload branding logo
// @Description Upload a logo image; the stored URL is merged into the link's branding
// @Tags links
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Link ID"
// @Param logo formData file true "Logo image"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} respond.Envelope "Missing file"
// @Security BearerAuth
// @Router /links/{id}/branding/logo [post]
func (h *Handler) UploadLogo(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	ws, link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, "Logo file is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to read logo")
		return
	}
	defer f.Close()

	key := storage.BrandingKey(ws.ID, link.ID, fileHeader.Filename)
	url, err := h.store.Upload(c.Request.Context(), key, f)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("link_id", link.ID).
			Str("action", "links.upload_logo").
			Msg("logo upload failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to store logo")
		return
	}

	link.Branding.Logo.URL = url
	if alt := c.PostForm("alt_text"); alt != "" {
		link.Branding.Logo.AltText = alt
	}

	if err := h.db.Save(link).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to update branding")
		return
	}

	respond.OK(c, http.StatusOK, linkToResponse(*link))
}

// RegisterRoutes registers link routes with their rate-limit presets
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rl *ratelimit.Limiter) {
	rg.GET("/links/slug/check", rl.Require("links.check_slug", ratelimit.Strict), h.CheckSlug)
	rg.POST("/links", rl.Require("links.create", ratelimit.Moderate), h.Create)
	rg.GET("/links", rl.Require("links.list", ratelimit.Generous), h.List)
	rg.GET("/links/:id", rl.Require("links.get", ratelimit.Generous), h.Get)
	rg.PATCH("/links/:id", rl.Require("links.update", ratelimit.Moderate), h.Update)
	rg.DELETE("/links/:id", rl.Require("links.delete", ratelimit.Moderate), h.Delete)
	rg.PATCH("/links/:id/config", rl.Require("links.update_config", ratelimit.Moderate), h.UpdateConfig)
	rg.PATCH("/links/:id/branding", rl.Require("links.update_branding", ratelimit.Moderate), h.UpdateBranding)
	rg.POST("/links/:id/branding/logo", rl.Require("links.upload_logo", ratelimit.Moderate), h.UploadLogo)
}
