package session

import (
	"net/http"

	"github.com/gorilla/securecookie"
)

// CookieCodec writes and reads the signed, HttpOnly cookie that carries the
// opaque session token.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	name   string
	secure bool
	maxAge int
}

// NewCookieCodec builds a codec. hashKey signs the cookie, blockKey (32
// bytes, optional) additionally encrypts it.
func NewCookieCodec(hashKey, blockKey []byte, name string, secure bool, maxAge int) *CookieCodec {
	return &CookieCodec{
		sc:     securecookie.New(hashKey, blockKey),
		name:   name,
		secure: secure,
		maxAge: maxAge,
	}
}

// Read extracts the session token from the request cookie, if present and
// validly signed.
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return "", err
	}

	var token string
	if err := c.sc.Decode(c.name, cookie.Value, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Write sets the session cookie for a token.
func (c *CookieCodec) Write(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(c.name, token)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   c.maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Clear expires the session cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
