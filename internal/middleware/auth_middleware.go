package middleware

import (
	"context"
	"strings"

	"github.com/ArowuTest/healthclaims-backend/internal/access"
	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionKey is the gin context key holding the *models.Session
const SessionKey = "session"

// Authenticator resolves a bearer token into a session
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// JWTAuthMiddleware requires a valid bearer token and stores the session in the context
func JWTAuthMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	const bearerSchema = "Bearer "
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperrors.Unauthenticated("Authorization header is required"))
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			abort(c, apperrors.Unauthenticated("Authorization header must start with Bearer "))
			return
		}

		session, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			logger.Warn("authentication failed",
				zap.String("request_id", RequestID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			abort(c, err)
			return
		}

		c.Set(SessionKey, session)
		c.Set("userID", session.UserID)
		c.Set("userRole", string(session.Role))
		c.Next()
	}
}

// SessionFromContext returns the session set by JWTAuthMiddleware, or nil
func SessionFromContext(c *gin.Context) *models.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*models.Session)
	return session
}

// RequireRole allows only the given roles through
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			abort(c, apperrors.Unauthenticated("authentication required"))
			return
		}
		for _, r := range roles {
			if session.Role == r {
				c.Next()
				return
			}
		}
		abort(c, apperrors.Forbidden("role %q may not access this resource", session.Role))
	}
}

// RequireOperation gates a route with the access table
func RequireOperation(op access.Operation) gin.HandlerFunc {
	return RequireRole(access.Roles(op)...)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.StatusCode(err), apperrors.ToBody(err))
}
