package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/identity"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	provider     identity.Provider
	provisioning *identity.ProvisioningService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(provider identity.Provider, provisioning *identity.ProvisioningService) *AuthHandler {
	return &AuthHandler{provider: provider, provisioning: provisioning}
}

// RegisterPublicRoutes registers the routes reachable without a session
func (h *AuthHandler) RegisterPublicRoutes(r gin.IRouter) {
	r.POST("/auth/signin", h.HandleSignIn)
}

// RegisterRoutes registers the routes requiring a session
func (h *AuthHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/auth/signout", h.HandleSignOut)
	r.POST("/auth/first-access", h.HandleFirstAccess)
	r.GET("/auth/me", h.HandleMe)
}

// SignInRequest carries login credentials
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleSignIn authenticates a user. Failures surface one of three stable
// messages so callers cannot probe which accounts exist.
func (h *AuthHandler) HandleSignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.provider.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials),
			errors.Is(err, identity.ErrEmailNotConfirmed),
			errors.Is(err, identity.ErrOTPExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Msg("sign in failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sign in failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"pending":    session.Pending,
	})
}

// HandleSignOut revokes the current session
func (h *AuthHandler) HandleSignOut(c *gin.Context) {
	if err := h.provider.SignOut(c.Request.Context(), CurrentToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// FirstAccessRequest carries the user-chosen password replacing the OTP
type FirstAccessRequest struct {
	Password string `json:"password" binding:"required"`
	Confirm  string `json:"confirm" binding:"required"`
}

// HandleFirstAccess completes registration by replacing the OTP credential
func (h *AuthHandler) HandleFirstAccess(c *gin.Context) {
	var req FirstAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := CurrentActor(c)
	if err := h.provisioning.FirstAccess(c.Request.Context(), actor.ID, req.Password, req.Confirm); err != nil {
		if errors.Is(err, identity.ErrOTPExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleMe returns the actor behind the current session
func (h *AuthHandler) HandleMe(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentActor(c))
}
