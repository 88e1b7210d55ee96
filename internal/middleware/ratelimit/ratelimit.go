package rateLimit

import (
	"net"
	"net/http"

	resp "travel_auth/internal/lib/api/response"
	"travel_auth/internal/ratelimit"

	"github.com/go-chi/render"
)

func Login(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limitByIP(l, ratelimit.ClassLogin)
}

func Register(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limitByIP(l, ratelimit.ClassRegister)
}

func Refresh(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limitByIP(l, ratelimit.ClassRefresh)
}

func Forgot(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limitByIP(l, ratelimit.ClassForgot)
}

func Verify(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limitByIP(l, ratelimit.ClassVerify)
}

func Resend(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return limitByIP(l, ratelimit.ClassResend)
}

// limitByIP keys counters on the client address and answers over-limit
// requests with 429 and TOO_MANY_ATTEMPTS, so "slow down" is never
// mistaken for "wrong password".
func limitByIP(l *ratelimit.Limiter, class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r), class) {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.ErrorCode("too many attempts, try again later", resp.CodeTooManyAttempts))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
