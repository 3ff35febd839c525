package auth

import (
	"net/http"
	"strings"

	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/respond"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NormalizeEmail lowercases and trims an email address. All stored emails go
// through this so permission lookups by email are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account and receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} respond.Envelope "Validation error"
// @Failure 409 {object} respond.Envelope "Email already registered"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	email := NormalizeEmail(req.Email)

	// Check if email already exists
	var existingUser models.User
	if err := h.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		respond.Fail(c, http.StatusConflict, respond.CodeAlreadyExists, "Email already registered")
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to process password")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         req.Name,
	}

	if err := h.db.Create(&user).Error; err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to create user")
		return
	}

	token, err := GenerateToken(user.ID, user.Email)
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to generate token")
		return
	}

	respond.OK(c, http.StatusCreated, AuthResponse{
		Token: token,
		User:  UserResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password to receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} respond.Envelope "Validation error"
// @Failure 401 {object} respond.Envelope "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthenticated, "Invalid email or password")
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthenticated, "Invalid email or password")
		return
	}

	token, err := GenerateToken(user.ID, user.Email)
	if err != nil {
		respond.Fail(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to generate token")
		return
	}

	respond.OK(c, http.StatusOK, AuthResponse{
		Token: token,
		User:  UserResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

// Me returns the current authenticated user
// @Summary Get current user
// @Description Get the authenticated user's profile
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} respond.Envelope "Authentication required"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		respond.Fail(c, http.StatusUnauthorized, respond.CodeUnauthenticated, "Authentication required")
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		respond.Fail(c, http.StatusNotFound, respond.CodeNotFound, "User not found")
		return
	}

	respond.OK(c, http.StatusOK, UserResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.GET("/me", AuthMiddleware(), h.Me)
}
