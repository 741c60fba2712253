// api/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/model"
)

// Context keys set by the auth middleware
const (
	ContextKeyUserID         = "userID"
	ContextKeyUser           = "requestingUser"
	ContextKeyOrganizationID = "organizationID"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

func GetUserIDFromContext(c *gin.Context) (string, error) {
	value, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", aegis_errors.ErrUnauthorized
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", aegis_errors.ErrUnauthorized
	}
	return userID, nil
}

// GetUserFromContext returns the authenticated subject. Requests that never
// passed the auth middleware have no subject.
func GetUserFromContext(c *gin.Context) (*model.User, error) {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, aegis_errors.ErrUnauthorized
	}
	user, ok := value.(*model.User)
	if !ok || user == nil {
		return nil, aegis_errors.ErrUnauthorized
	}
	return user, nil
}

// GetOrganizationIDFromContext returns the tenant the request is scoped to.
// The X-Organization-ID header wins over the subject's own organization.
func GetOrganizationIDFromContext(c *gin.Context) string {
	value, exists := c.Get(ContextKeyOrganizationID)
	if !exists {
		return ""
	}
	organizationID, ok := value.(string)
	if !ok {
		return ""
	}
	return organizationID
}
