package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/pkg/redis"
	"github.com/jwkim/storefront-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey      = "user_id"
	UserEmailKey   = "user_email"
	UserRoleKey    = "user_role"
	AccessTokenKey = "access_token"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

func extractBearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		// WebSocket clients cannot set headers, so allow a query token.
		token := c.Query("token")
		return token, token != ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Authenticate validates the JWT access token (required).
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := extractBearerToken(c)
		if !ok {
			log.Warn("Missing or malformed authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, errors.AuthUnauthorized, "authentication required")
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if err == util.ErrExpiredToken {
				errors.Unauthorized(c, errors.AuthTokenExpired, "token has expired")
			} else {
				errors.Unauthorized(c, errors.AuthTokenInvalid, "invalid authentication token")
			}
			return
		}

		if claims.TokenType != util.TokenTypeAccess {
			errors.Unauthorized(c, errors.AuthTokenInvalid, "invalid authentication token")
			return
		}

		if revoked, err := redis.IsTokenBlacklisted(c.Request.Context(), token); err == nil && revoked {
			log.Warn("Revoked token rejected", map[string]interface{}{
				"user_id": claims.UserID,
			})
			errors.Unauthorized(c, errors.AuthTokenRevoked, "token has been revoked")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))
		c.Set(AccessTokenKey, token)

		c.Next()
	}
}

// OptionalAuthenticate validates the JWT token if present. Requests
// without a valid token continue as guests.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := extractBearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil || claims.TokenType != util.TokenTypeAccess {
			log.Debug("Token validation failed - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		if revoked, rerr := redis.IsTokenBlacklisted(c.Request.Context(), token); rerr == nil && revoked {
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))
		c.Set(AccessTokenKey, token)

		c.Next()
	}
}

// RequireRole checks that the authenticated user has one of the roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userRole, exists := c.Get(UserRoleKey)
		if !exists {
			errors.Forbidden(c, errors.AuthzForbidden, "role information not found")
			return
		}

		role := userRole.(model.UserRole)
		for _, r := range roles {
			if role == model.UserRole(r) {
				c.Next()
				return
			}
		}

		userID, _ := GetUserID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.Forbidden(c, errors.AuthzAdminOnly, "insufficient permissions")
	}
}

// GetUserID extracts the authenticated user ID from context.
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmail extracts the authenticated user email from context.
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// GetUserRole extracts the authenticated user role from context.
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}

// GetAccessToken returns the raw bearer token for the current request.
func GetAccessToken(c *gin.Context) (string, bool) {
	token, exists := c.Get(AccessTokenKey)
	if !exists {
		return "", false
	}
	return token.(string), true
}
