package middleware

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

const (
	// AccessCookie - cookie с access-токеном; уходит на любой путь.
	AccessCookie = "access-token"
	// RefreshCookie - cookie с refresh-токеном; виден только под RefreshCookiePath.
	RefreshCookie = "refresh-token"

	AccessCookiePath  = "/"
	RefreshCookiePath = "/auth"
)

// CookieOptions - общие атрибуты сессионных cookie.
type CookieOptions struct {
	Secure bool
	Domain string
}

// SetSessionCookies выставляет пару cookie по выпущенной паре токенов.
func SetSessionCookies(w http.ResponseWriter, pair *models.TokenPair, opts CookieOptions) {
	access := opts.cookie(AccessCookie, AccessCookiePath, pair.AccessToken)
	access.Expires = pair.AccessExpiresAt
	http.SetCookie(w, access)

	refresh := opts.cookie(RefreshCookie, RefreshCookiePath, pair.RefreshToken)
	refresh.Expires = pair.RefreshExpiresAt
	http.SetCookie(w, refresh)
}

// ClearSessionCookies удаляет обе cookie.
func ClearSessionCookies(w http.ResponseWriter, opts CookieOptions) {
	clearAccessCookie(w, opts)
	http.SetCookie(w, opts.expired(RefreshCookie, RefreshCookiePath))
}

func clearAccessCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, opts.expired(AccessCookie, AccessCookiePath))
}

// expired - cookie-удаление: MaxAge<0 даёт Max-Age=0 на проводе.
func (o CookieOptions) expired(name, path string) *http.Cookie {
	c := o.cookie(name, path, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func (o CookieOptions) cookie(name, path, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   o.Domain,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// cookieValue возвращает непустое значение cookie или "".
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}
