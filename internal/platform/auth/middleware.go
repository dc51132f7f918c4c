package auth

import (
	"github.com/gin-gonic/gin"

	"toolcrib-backend/internal/platform/apperr"
)

const (
	CtxIdentityKey = "identity"
	CtxUserIDKey   = "user_id"
)

// RequireAuth: トークンを検証して context に Identity を詰める
func RequireAuth(g *Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := g.Authenticate(c.Request)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Set(CtxUserIDKey, id.UserID)
		c.Next()
	}
}

// RequireRole は RequireAuth の後ろに置く
func RequireRole(g *Guard, roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			apperr.Respond(c, apperr.Unauthenticated("missing identity"))
			return
		}
		if err := g.Authorize(id, roles...); err != nil {
			apperr.Respond(c, err)
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
