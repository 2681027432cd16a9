package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"todo-server/entities"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionCookie = "TODO_SESSION"
	issuer        = "todo-server"
)

var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the signed payload of the session cookie.
type SessionClaims struct {
	Username string `json:"username"`
	Version  uint64 `json:"ver"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a user id.
func (c *SessionClaims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return id, nil
}

// SessionManager issues and verifies HS256-signed session cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(secret []byte, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		secret: secret,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

func (m *SessionManager) Issue(user *entities.User) (string, error) {
	if !user.Resolved() {
		return "", ErrInvalidSession
	}
	now := m.now()
	claims := SessionClaims{
		Username: user.Username,
		Version:  user.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return claims, nil
}

// Start sets the session cookie for user.
func (m *SessionManager) Start(c *gin.Context, user *entities.User) error {
	token, err := m.Issue(user)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// End clears the session cookie.
func (m *SessionManager) End(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", m.secure, true)
}

func (m *SessionManager) claimsFrom(c *gin.Context) (*SessionClaims, error) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		return nil, ErrInvalidSession
	}
	return m.Parse(token)
}
