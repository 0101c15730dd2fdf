package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/models"
)

// UsersHandler handles admin account management requests
type UsersHandler struct {
	provisioning *identity.ProvisioningService
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(provisioning *identity.ProvisioningService) *UsersHandler {
	return &UsersHandler{provisioning: provisioning}
}

// RegisterRoutes registers the user management routes. All of them are
// admin-only.
func (h *UsersHandler) RegisterRoutes(r gin.IRouter) {
	users := r.Group("/users", RequireRole(models.RoleAdmin))
	users.GET("", h.HandleList)
	users.POST("", h.HandleCreate)
	users.PUT("/:id", h.HandleUpdate)
	users.DELETE("/:id", h.HandleDelete)
	users.POST("/:id/reset-otp", h.HandleResetOTP)
	users.POST("/:id/reset-password", h.HandleResetPassword)
}

// HandleList returns all accounts, including pending ones with their OTP
func (h *UsersHandler) HandleList(c *gin.Context) {
	users, err := h.provisioning.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUserRequest registers a new account
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// HandleCreate provisions a new pending account and returns its OTP
func (h *UsersHandler) HandleCreate(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCollaborator
	}

	user, err := h.provisioning.CreateUser(c.Request.Context(), req.Email, req.Name, req.Role)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("failed to provision user")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// UpdateUserRequest updates an account's profile
type UpdateUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// HandleUpdate updates an account's name and role
func (h *UsersHandler) HandleUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.provisioning.UpdateUser(c.Request.Context(), id, req.Name, req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleDelete removes an account
func (h *UsersHandler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.provisioning.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleResetOTP issues a fresh OTP for a locked-out pending account
func (h *UsersHandler) HandleResetOTP(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	otp, err := h.provisioning.ResetOTP(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"otp": otp})
}

// ResetPasswordRequest sets a password on behalf of a user
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
	Confirm  string `json:"confirm" binding:"required"`
}

// HandleResetPassword sets an account's password directly and forces it active
func (h *UsersHandler) HandleResetPassword(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.provisioning.ResetPassword(c.Request.Context(), id, req.Password, req.Confirm); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
