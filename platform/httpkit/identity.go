// Package httpkit provides HTTP identity helpers.
package httpkit

import (
	"fieldserve_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserID extracts the authenticated user's ID from the gin context.
func UserID(c *gin.Context) (uuid.UUID, error) {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, apperr.Unauthorized("not authenticated")
	}

	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, apperr.Unauthorized("not authenticated")
	}

	return id, nil
}

// HasRole reports whether the authenticated user carries the given role.
func HasRole(c *gin.Context, role string) bool {
	value, ok := c.Get(ContextRolesKey)
	if !ok {
		return false
	}

	roles, ok := value.([]string)
	if !ok {
		return false
	}

	for _, item := range roles {
		if item == role {
			return true
		}
	}
	return false
}
