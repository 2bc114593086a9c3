package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"animehub/pkg/models"
)

const ctxIdentityKey = "auth_identity"

// UserStore is the slice of the user repo the middleware needs to turn
// token claims into a live account.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// Identity is the authenticated-user value attached to the request
// context once a token resolves to an existing account.
type Identity struct {
	ID   int64
	User *models.User
}

// Required rejects the request unless a valid bearer token resolves to
// an existing user.
func Required(tokens TokenService, users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := resolve(c, tokens, users)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Set(ctxIdentityKey, ident)
		c.Next()
	}
}

// Optional attaches an identity when a valid token is present and
// proceeds anonymously otherwise. An invalid token is treated the same
// as no token.
func Optional(tokens TokenService, users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ident, ok := resolve(c, tokens, users); ok {
			c.Set(ctxIdentityKey, ident)
		}
		c.Next()
	}
}

// AdminOnly must run after Required.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil || !ident.User.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func resolve(c *gin.Context, tokens TokenService, users UserStore) (*Identity, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return nil, false
	}

	raw := strings.TrimSpace(h[len("Bearer "):])
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, false
	}

	u, err := users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		return nil, false
	}

	return &Identity{ID: u.ID, User: u}, true
}

// IdentityFrom returns the authenticated identity, or nil on anonymous
// requests.
func IdentityFrom(c *gin.Context) *Identity {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return nil
	}
	ident, _ := v.(*Identity)
	return ident
}
