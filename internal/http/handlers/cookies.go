package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookie describes the opaque session cookie handed to browsers.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (sc SessionCookie) name() string {
	if sc.Name == "" {
		return "session_id"
	}
	return sc.Name
}

func (sc SessionCookie) set(ctx *gin.Context, id string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		sc.name(),
		id,
		int(sc.TTL.Seconds()),
		"/",
		"",
		sc.Secure,
		true, // HttpOnly.
	)
}

func (sc SessionCookie) clear(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(sc.name(), "", -1, "/", "", sc.Secure, true)
}

func (sc SessionCookie) read(ctx *gin.Context) string {
	v, err := ctx.Cookie(sc.name())
	if err != nil {
		return ""
	}
	return v
}
