package auth

import (
	"todo-server/entities"

	"github.com/gin-gonic/gin"
)

const principalKey = "auth.principal"

// RoleUser is the single authority every account holds.
const RoleUser = "ROLE_USER"

// Principal adapts a stored User to what the request layer needs to know
// about the caller. It keeps authentication concerns off the entity.
type Principal struct {
	user *entities.User
}

func NewPrincipal(user *entities.User) *Principal {
	return &Principal{user: user}
}

func (p *Principal) User() *entities.User { return p.user }

func (p *Principal) UserID() uint64 { return p.user.ID }

func (p *Principal) Username() string { return p.user.Username }

func (p *Principal) Enabled() bool { return p.user.Enabled }

func (p *Principal) Authorities() []string { return []string{RoleUser} }

func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}

func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *entities.User {
	if p, ok := CurrentPrincipal(c); ok {
		return p.User()
	}
	return nil
}
