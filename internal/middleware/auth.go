package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/response"
)

// Context keys set by Auth.
const (
	AccountKey   = "account"
	AccountIDKey = "accountID"
	RoleKey      = "userRole"
)

type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*models.Account, error)
}

// TokenFromRequest returns the session token from the named cookie, falling
// back to an "Authorization: Bearer" header.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if tok, err := c.Cookie(cookieName); err == nil && tok != "" {
		return tok
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// Auth resolves the session token to an account and stores it in the context.
func Auth(verifier SessionVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		acc, err := verifier.VerifySession(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(AccountKey, acc)
		c.Set(AccountIDKey, acc.ID.Hex())
		c.Set(RoleKey, acc.Role)
		c.Next()
	}
}

// RequireRole lets the request through only when Auth stored one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleKey)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "Insufficient permissions")
	}
}

// CurrentAccount returns the account stored by Auth, if any.
func CurrentAccount(c *gin.Context) (*models.Account, bool) {
	v, ok := c.Get(AccountKey)
	if !ok {
		return nil, false
	}
	acc, ok := v.(*models.Account)
	return acc, ok
}
