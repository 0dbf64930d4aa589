package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"studymate/internal/model"
	"studymate/internal/pkg/jwtutil"
	"studymate/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextOwnerKey    = "owner_id"
)

// AuthJWT requires a valid bearer token.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			response.Abort(c, 401, response.CodeUnauthorized, "missing authorization header")
			return
		}
		if !ok {
			response.Abort(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}
		if !setClaims(c, secret, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the owner of the request. Requests without a token
// act as the shared guest owner when allowGuest is set. A token that is
// present but invalid is always rejected.
func OptionalAuth(secret string, allowGuest bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			if !allowGuest {
				response.Abort(c, 401, response.CodeUnauthorized, "login required")
				return
			}
			c.Set(ContextOwnerKey, model.GuestOwnerID)
			c.Next()
			return
		}
		if !ok {
			response.Abort(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}
		if !setClaims(c, secret, token) {
			return
		}
		c.Next()
	}
}

// OwnerID returns the owner resolved by AuthJWT or OptionalAuth.
func OwnerID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextOwnerKey)
	if !exists {
		return "", false
	}
	owner, ok := v.(string)
	return owner, ok && owner != ""
}

func bearerToken(c *gin.Context) (token string, present, ok bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false, false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", true, false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix)), true, true
}

func setClaims(c *gin.Context, secret, token string) bool {
	claims, err := jwtutil.ParseToken(secret, token)
	if err != nil || claims.UserID == "" {
		response.Abort(c, 401, response.CodeUnauthorized, "invalid or expired token")
		return false
	}
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextUsernameKey, claims.Username)
	c.Set(ContextOwnerKey, claims.UserID)
	return true
}
