package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookie names shared with the frontend.
const (
	cookieAccess  = "at"
	cookieRefresh = "rt"
	cookieCSRF    = "csrf"
)

const (
	accessCookieTTL  = 15 * time.Minute
	refreshCookieTTL = 14 * 24 * time.Hour
	csrfCookieTTL    = time.Hour
)

// CookieWriter sets and clears the auth cookie triple. The refresh cookie is
// scoped to /auth so it only travels on refresh and logout. The CSRF cookie
// is readable by the frontend for the double-submit header.
type CookieWriter struct {
	Secure bool
}

// SetAuth installs all three cookies after a successful login or refresh.
// Pass an empty csrf to leave the existing CSRF cookie alone.
func (w CookieWriter) SetAuth(c *gin.Context, access, refresh, csrf string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieAccess,
		Value:    access,
		Path:     "/",
		MaxAge:   int(accessCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cookieRefresh,
		Value:    refresh,
		Path:     "/auth",
		MaxAge:   int(refreshCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	if csrf != "" {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cookieCSRF,
			Value:    csrf,
			Path:     "/",
			MaxAge:   int(csrfCookieTTL.Seconds()),
			Secure:   w.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// Clear expires all three cookies (logout).
func (w CookieWriter) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name: cookieAccess, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, Secure: w.Secure, SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name: cookieRefresh, Value: "", Path: "/auth", MaxAge: -1,
		HttpOnly: true, Secure: w.Secure, SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name: cookieCSRF, Value: "", Path: "/", MaxAge: -1,
		Secure: w.Secure, SameSite: http.SameSiteStrictMode,
	})
}
