package middleware

import (
	"net/http"
	"strings"

	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/pkg/auth"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey = "user_id"
	LoginKey  = "login"
	RoleKey   = "role"
)

// AuthService bundles the token and cookie-session services.
type AuthService struct {
	JWT     *auth.JWTService
	Session *auth.SessionService
}

func setIdentity(c *gin.Context, userID uint, login, role string) {
	c.Set(UserIDKey, userID)
	c.Set(LoginKey, login)
	c.Set(RoleKey, role)
}

// AuthMiddleware accepts either a bearer JWT or a Redis-backed
// session_id cookie.
func AuthMiddleware(authSvc *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := authSvc.JWT.Validate(tokenString)
			if err == nil {
				setIdentity(c, claims.UserID, claims.Login, claims.Role)
				c.Next()
				return
			}
		}

		sessionID, err := c.Cookie("session_id")
		if err == nil && sessionID != "" {
			sessionData, err := authSvc.Session.Get(c.Request.Context(), sessionID)
			if err == nil && sessionData != nil {
				setIdentity(c, sessionData.UserID, sessionData.Login, sessionData.Role)
				// Keep the session alive while it is in use.
				_ = authSvc.Session.Extend(c.Request.Context(), sessionID)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
	}
}

// RequireNeurologistMiddleware gates clinician-only routes.
func RequireNeurologistMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(RoleKey)
		if !exists || role.(string) != ds.RoleNeurologist {
			c.JSON(http.StatusForbidden, gin.H{"error": "neurologist access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetCurrentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

func GetCurrentLogin(c *gin.Context) (string, bool) {
	login, exists := c.Get(LoginKey)
	if !exists {
		return "", false
	}
	return login.(string), true
}

func GetCurrentRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(RoleKey)
	if !exists {
		return "", false
	}
	return role.(string), true
}
