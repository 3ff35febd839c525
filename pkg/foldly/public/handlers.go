package public

import (
	"errors"
	"net/http"
	"time"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/ratelimit"
	"github.com/foldly/foldly/pkg/foldly/respond"
	"github.com/foldly/foldly/pkg/foldly/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handler serves the unauthenticated upload-page surface: link resolution,
// password verification and anonymous uploads.
type Handler struct {
	db    *gorm.DB
	store storage.Client
}

// NewHandler creates a new public handler
func NewHandler(db *gorm.DB, store storage.Client) *Handler {
	return &Handler{db: db, store: store}
}

// PublicLinkResponse is the subset of link data shown on the upload page.
type PublicLinkResponse struct {
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	CustomMessage     string          `json:"custom_message,omitempty"`
	RequiresName      bool            `json:"requires_name"`
	PasswordProtected bool            `json:"password_protected"`
	Branding          models.Branding `json:"branding"`
}

// VerifyPasswordRequest represents a password check for a protected link
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UploadResponse acknowledges an anonymous upload
type UploadResponse struct {
	FileID string `json:"file_id"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

// resolveLink finds a servable public link by slug. Missing, private,
// inactive and expired links all get the same generic answer.
func (h *Handler) resolveLink(c *gin.Context, slug string) (*models.Link, bool) {
	var link models.Link
	if err := h.db.Where("slug = ?", slug).First(&link).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to resolve link")
			return nil, false
		}
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Link not found")
		return nil, false
	}

	if !link.IsPublic || !link.IsActive || link.Expired(time.Now()) {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "Link not found")
		return nil, false
	}

	return &link, true
}

// Resolve returns the public view of an active link
// @Summary Resolve a public link
// @Description Get the upload-page data for a public link by slug
// @Tags public
// @Produce json
// @Param slug path string true "Link slug"
// @Success 200 {object} PublicLinkResponse
// @Failure 404 {object} respond.Envelope "Link not found"
// @Router /public/links/{slug} [get]
func (h *Handler) Resolve(c *gin.Context) {
	link, ok := h.resolveLink(c, c.Param("slug"))
	if !ok {
		return
	}

	respond.OK(c, http.StatusOK, PublicLinkResponse{
		Name:              link.Name,
		Slug:              link.Slug,
		CustomMessage:     link.Config.CustomMessage,
		RequiresName:      link.Config.RequiresName,
		PasswordProtected: link.Config.PasswordProtected,
		Branding:          link.Branding,
	})
}

// VerifyPassword checks the password of a protected link
// @Summary Verify a link password
// @Description Check the supplied password against a password-protected link
// @Tags public
// @Accept json
// @Produce json
// @Param slug path string true "Link slug"
// @Param request body VerifyPasswordRequest true "Password"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} respond.Envelope "Wrong password"
// @Router /public/links/{slug}/verify [post]
func (h *Handler) VerifyPassword(c *gin.Context) {
	link, ok := h.resolveLink(c, c.Param("slug"))
	if !ok {
		return
	}

	if !link.Config.PasswordProtected {
		respond.OK(c, http.StatusOK, gin.H{"valid": true})
		return
	}

	var req VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	if !auth.CheckPassword(req.Password, link.Config.PasswordHash) {
		respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthenticated, "Incorrect password")
		return
	}

	respond.OK(c, http.StatusOK, gin.H{"valid": true})
}

// Upload accepts an anonymous file upload through a public link
// @Summary Upload a file
// @Description Upload a file through a public link, honoring its config gates
// @Tags public
// @Accept multipart/form-data
// @Produce json
// @Param slug path string true "Link slug"
// @Param file formData file true "File to upload"
// @Param uploader_name formData string false "Uploader name (required when the link demands it)"
// @Param uploader_email formData string false "Uploader email"
// @Param password formData string false "Password for protected links"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} respond.Envelope "Validation error"
// @Failure 401 {object} respond.Envelope "Wrong password"
// @Router /public/links/{slug}/files [post]
func (h *Handler) Upload(c *gin.Context) {
	link, ok := h.resolveLink(c, c.Param("slug"))
	if !ok {
		return
	}

	if link.Config.PasswordProtected {
		if !auth.CheckPassword(c.PostForm("password"), link.Config.PasswordHash) {
			respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthenticated, "Incorrect password")
			return
		}
	}

	uploaderName := c.PostForm("uploader_name")
	if link.Config.RequiresName && uploaderName == "" {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, "This link requires your name")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, "File is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to read file")
		return
	}
	defer src.Close()

	file := models.File{
		WorkspaceID:   link.WorkspaceID,
		LinkID:        &link.ID,
		Name:          fileHeader.Filename,
		Size:          fileHeader.Size,
		ContentType:   fileHeader.Header.Get("Content-Type"),
		UploaderName:  uploaderName,
		UploaderEmail: auth.NormalizeEmail(c.PostForm("uploader_email")),
	}
	file.ID = uuid.NewString() // assigned early, the ID is part of the storage key

	key := storage.UploadKey(link.WorkspaceID, link.ID, file.ID, fileHeader.Filename)
	if _, err := h.store.Upload(c.Request.Context(), key, src); err != nil {
		log.Error().Err(err).
			Str("link_id", link.ID).
			Str("action", "public.upload").
			Msg("file upload failed")
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to store file")
		return
	}
	file.StoragePath = key

	if err := h.db.Create(&file).Error; err != nil {
		// keep storage consistent with the database
		h.store.Delete(c.Request.Context(), key)
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to record file")
		return
	}

	if link.Config.NotifyOnUpload {
		log.Info().
			Str("link_id", link.ID).
			Str("file_id", file.ID).
			Msg("upload notification queued")
	}

	respond.OK(c, http.StatusCreated, UploadResponse{FileID: file.ID, Name: file.Name, Size: file.Size})
}

// RegisterRoutes registers the public routes, rate-limited by client IP
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rl *ratelimit.Limiter) {
	rg.GET("/public/links/:slug", rl.RequireIP("public.resolve", ratelimit.Generous), h.Resolve)
	rg.POST("/public/links/:slug/verify", rl.RequireIP("public.verify", ratelimit.Strict), h.VerifyPassword)
	rg.POST("/public/links/:slug/files", rl.RequireIP("public.upload", ratelimit.Moderate), h.Upload)
}
