package auth

import (
	"context"
	"net/http"

	"todo-server/entities"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// UserLoader resolves the stored user behind a session.
type UserLoader interface {
	GetUser(ctx context.Context, id uint64) (*entities.User, error)
}

// Authenticate attaches a Principal when the request carries a valid,
// unrevoked session for an existing, enabled user. Stale cookies are
// cleared. The request always continues.
func (m *SessionManager) Authenticate(loader UserLoader, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := c.Cookie(SessionCookie); err != nil {
			c.Next()
			return
		}

		claims, err := m.claimsFrom(c)
		if err != nil {
			logger.Debug("discarding session", "err", err)
			m.End(c)
			c.Next()
			return
		}

		id, err := claims.UserID()
		if err != nil {
			m.End(c)
			c.Next()
			return
		}

		user, err := loader.GetUser(c.Request.Context(), id)
		if err != nil || !user.Enabled {
			logger.Debug("session user unavailable", "user_id", id, "err", err)
			m.End(c)
			c.Next()
			return
		}

		if claims.Version != user.SessionVersion {
			logger.Debug("session revoked", "user_id", id)
			m.End(c)
			c.Next()
			return
		}

		SetPrincipal(c, NewPrincipal(user))
		c.Next()
	}
}

// RequireUser sends anonymous requests to loginPath.
func RequireUser(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectAuthenticated sends already signed-in users to target.
func RedirectAuthenticated(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); ok {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
