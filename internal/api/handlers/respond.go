package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/repositories"
	"example.com/woodtrack/services/production/internal/services"
)

// respondError maps domain errors to HTTP status codes with a stable message
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, identity.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNoDeliveries),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrGroupTooSmall),
		errors.Is(err, services.ErrAlreadyGrouped):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case repositories.IsPartialApply(err):
		c.JSON(http.StatusMultiStatus, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
