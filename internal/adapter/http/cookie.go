package adapthttp

import (
	"net/http"
	"time"

	"ahaarwise/internal/domain"
)

const sessionCookieName = "session"

// sessionCookie is the session token carried by one request/response pair.
// Writes are visible to later reads within the same request.
type sessionCookie struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool

	loaded  bool
	value   string
	present bool
}

var _ domain.SessionCookie = (*sessionCookie)(nil)

func newSessionCookie(w http.ResponseWriter, r *http.Request, secure bool) *sessionCookie {
	return &sessionCookie{w: w, r: r, secure: secure}
}

func (c *sessionCookie) Get() (string, bool) {
	if !c.loaded {
		if ck, err := c.r.Cookie(sessionCookieName); err == nil {
			c.value, c.present = ck.Value, true
		}
		c.loaded = true
	}
	return c.value, c.present
}

func (c *sessionCookie) Set(token string, expiresAt time.Time) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
	c.loaded, c.value, c.present = true, token, true
}

func (c *sessionCookie) Delete() {
	http.SetCookie(c.w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	c.loaded, c.value, c.present = true, "", false
}
