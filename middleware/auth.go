package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/lumenhr/aegis/api/config"
	aegis_errors "github.com/lumenhr/aegis/api/errors"
	logger "github.com/lumenhr/aegis/api/logging"
	"github.com/lumenhr/aegis/api/service"
	"github.com/lumenhr/aegis/api/util"
)

// AccessClaims is the token payload issued by the identity service. Subject
// carries the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"org_id,omitempty"`
}

// AuthMiddleware authenticates the bearer token, loads the subject and pins
// the request to a tenant. A non-superuser can only operate inside their own
// organization, whatever the X-Organization-ID header says.
func AuthMiddleware(userService service.IUserService) gin.HandlerFunc {
	secret := []byte(config.GetString("auth.jwtSecret"))
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := parseAccessToken(tokenString, secret)
		if err != nil {
			logger.Warn("Rejected bearer token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		if claims.Subject == "" {
			logger.Warn("Bearer token without subject claim")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		user, err := userService.GetUser(c, claims.Subject)
		if err != nil {
			logger.Warn("Token subject not found",
				zap.String("subjectID", claims.Subject),
				zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		organizationID := c.GetHeader("X-Organization-ID")
		if organizationID == "" {
			organizationID = user.OrganizationID
		}
		if organizationID != user.OrganizationID && !user.IsSuperuser {
			logger.Warn("Cross-tenant request rejected",
				zap.String("userID", user.ID),
				zap.String("userOrganizationID", user.OrganizationID),
				zap.String("requestedOrganizationID", organizationID),
				zap.Error(aegis_errors.ErrTenantMismatch))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}

		c.Set(util.ContextKeyUserID, user.ID)
		c.Set(util.ContextKeyUser, user)
		c.Set(util.ContextKeyOrganizationID, organizationID)

		c.Next()
	}
}

func parseAccessToken(tokenString string, secret []byte) (*AccessClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
