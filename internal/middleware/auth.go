package middleware

import (
	"context"
	"net/http"
	"strings"

	"zedcmms/internal/apierror"
	"zedcmms/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ClaimsKey = "claims"

	tokenTypeAccess = "access"
)

// Claims is the subset of the access token the handlers rely on.
type Claims struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// PermissionChecker resolves whether a role holds a permission key.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleName, key string) (bool, error)
}

// JWTAuth validates the Bearer token on every protected route. Refresh
// tokens are rejected here; they are only accepted by /auth/refresh.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		mc, ok := token.Claims.(jwt.MapClaims)
		if !ok || mc["typ"] != tokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}
		rawID, _ := mc["user_id"].(string)
		userID, err := uuid.Parse(rawID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}
		claims := &Claims{UserID: userID}
		claims.Username, _ = mc["username"].(string)
		claims.Role, _ = mc["role"].(string)

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequirePermission rejects requests whose role lacks key.
func RequirePermission(perms PermissionChecker, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}
		ok, err := perms.HasPermission(c.Request.Context(), claims.Role, key)
		if apperror.Is(err, apperror.KindNotFound) {
			// the token outlived its role
			ok, err = false, nil
		}
		if err != nil {
			log.Error().Err(err).
				Str("request_id", c.GetString(RequestIDKey)).
				Str("role", claims.Role).
				Str("permission", key).
				Msg("permission lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.Internal())
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.WithCode(
				"permission denied", "PERMISSION_DENIED", map[string]any{"permission": key}))
			return
		}
		c.Next()
	}
}

// GetClaims returns the claims set by JWTAuth, or nil on public routes.
func GetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
