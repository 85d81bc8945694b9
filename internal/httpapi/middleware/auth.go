package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/agent-chat/internal/auth"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/models"
)

const (
	UserIDKey = "auth.user_id"
	UserKey   = "auth.user"
	ClaimsKey = "auth.claims"
)

type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type TokenRevoker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthRequired validates the bearer token and loads the account behind it
// on every request, so deactivation and role changes apply at once.
// revoked may be nil when no revocation store is configured.
func AuthRequired(secret string, users UserLoader, revoked TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			common.AbortFail(c, http.StatusUnauthorized, 40101, "unauthorized")
			return
		}

		claims, err := auth.ParseJWT(strings.TrimSpace(token), secret)
		if err != nil {
			common.AbortFail(c, http.StatusUnauthorized, 40102, "invalid token")
			return
		}

		if revoked != nil {
			gone, err := revoked.IsTokenRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				common.AbortFail(c, http.StatusInternalServerError, 50001, "internal error")
				return
			}
			if gone {
				common.AbortFail(c, http.StatusUnauthorized, 40103, "token revoked")
				return
			}
		}

		u, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if common.KindOf(err) == common.KindNotFound {
				common.AbortFail(c, http.StatusUnauthorized, 40101, "unauthorized")
				return
			}
			common.AbortFail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
		if !u.IsActive {
			common.AbortFail(c, http.StatusUnauthorized, 40104, "account is inactive")
			return
		}

		c.Set(UserIDKey, u.ID)
		c.Set(UserKey, u)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireAdmin admits only users whose role can manage users.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			common.AbortFail(c, http.StatusUnauthorized, 40101, "unauthorized")
			return
		}
		if !u.Role.Capabilities().ManageUsers {
			common.AbortFail(c, http.StatusForbidden, 40301, "admin role required")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func CurrentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	cl, _ := v.(*auth.Claims)
	return cl
}
