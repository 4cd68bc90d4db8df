package sessions

import (
	"net/http"
	"time"
)

const (
	CookieName = "erg_sess"
	MaxAge     = 7 * 24 * time.Hour
)

// SetCookie writes the session cookie. secure should come from configuration
// and is on unless explicitly disabled.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(MaxAge.Seconds()),
	})
}

// ClearCookie expires the session cookie in the browser.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetCookie returns the raw session token from the request.
func GetCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// FromRequest verifies the request's session cookie.
func (c *Codec) FromRequest(r *http.Request) (*Payload, bool) {
	token, ok := GetCookie(r)
	if !ok {
		return nil, false
	}
	return c.Verify(token)
}
