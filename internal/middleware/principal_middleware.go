package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
)

// PrincipalKey is the key used to store the resolved principal in Gin context
const PrincipalKey = "principal"

// PrincipalResolver turns token claims into a Principal.
// Implemented by services.PrincipalResolver.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, role string, agencyID *uuid.UUID) (models.Principal, error)
}

// PrincipalMiddleware resolves the request's Principal once from the token claims,
// the worker profile and the agency subscription. Must be used after AuthMiddleware.
// Callers whose role does not resolve are rejected here.
func PrincipalMiddleware(resolver PrincipalResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			unauthorized(c, "unauthorized", "User context not found", "MISSING_USER_CONTEXT")
			return
		}

		p, err := resolver.Resolve(c.Request.Context(), userCtx.UserID, userCtx.Role, userCtx.AgencyID)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"user_id": userCtx.UserID,
				"error":   err.Error(),
			}).Error("Failed to resolve principal")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to load your account",
				"code":    "PRINCIPAL_RESOLUTION_FAILED",
			})
			c.Abort()
			return
		}

		if p.Role == models.RoleUnauthenticated {
			unauthorized(c, "unauthorized", "Your account is not active for this service", "ACCOUNT_INACTIVE")
			return
		}

		c.Set(PrincipalKey, p)
		c.Next()
	}
}

// GetPrincipal retrieves the resolved principal from Gin context
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := value.(models.Principal)
	return p, ok
}
