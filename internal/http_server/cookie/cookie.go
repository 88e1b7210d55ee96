package cookie

import (
	"net/http"
	"time"
)

// RefreshCookie is httpOnly and scoped to /auth: page scripts never see the
// refresh token, the browser only sends it on refresh/logout paths.
const RefreshCookie = "refresh_token"

const authPath = "/auth"

func SetRefresh(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Path:     authPath,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func ClearRefresh(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     authPath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// RefreshFromRequest returns the refresh token carried by the cookie, or
// empty when absent.
func RefreshFromRequest(r *http.Request) string {
	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
