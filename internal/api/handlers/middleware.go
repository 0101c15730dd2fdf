package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"example.com/woodtrack/services/production/internal/identity"
)

const actorKey = "actor"

// AuthMiddleware resolves the bearer token to an actor and aborts with 401
// when the session is missing, expired or terminated.
func AuthMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		actor, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			message := "session expired"
			if errors.Is(err, identity.ErrOTPExpired) {
				message = identity.ErrOTPExpired.Error()
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(actorKey, *actor)
		c.Set("token", token)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the actor holds one of the given roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// CurrentActor returns the actor attached by AuthMiddleware
func CurrentActor(c *gin.Context) identity.Actor {
	value, ok := c.Get(actorKey)
	if !ok {
		return identity.Actor{}
	}
	actor, _ := value.(identity.Actor)
	return actor
}

// CurrentToken returns the session token attached by AuthMiddleware
func CurrentToken(c *gin.Context) string {
	return c.GetString("token")
}
