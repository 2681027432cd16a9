package httpHandler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie = "TODO_FLASH"

	FlashSuccess = "success"
	FlashError   = "error"

	genericErrorMessage = "Something went wrong. Please try again."
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Flashes reads and writes the flash cookie. Secure mirrors the session
// cookie setting.
type Flashes struct {
	secure bool
}

func NewFlashes(secure bool) *Flashes {
	return &Flashes{secure: secure}
}

func (f *Flashes) Set(c *gin.Context, kind, message string) {
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(raw), 60, "/", "", f.secure, true)
}

// Pop returns the pending flash, if any, and clears it.
func (f *Flashes) Pop(c *gin.Context) *Flash {
	value, err := c.Cookie(flashCookie)
	if err != nil || value == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", f.secure, true)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flash Flash
	if err := json.Unmarshal(raw, &flash); err != nil || flash.Message == "" {
		return nil
	}
	if flash.Kind != FlashSuccess {
		flash.Kind = FlashError
	}
	return &flash
}
