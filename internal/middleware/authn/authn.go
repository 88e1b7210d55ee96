package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "travel_auth/internal/lib/api/response"
	"travel_auth/internal/token"

	"github.com/go-chi/render"
)

type ctxKey struct{}

// New guards a route with a bearer access token. Missing, malformed and
// expired tokens all land on the same 401; the user id travels in the
// request context on success.
func New(log *slog.Logger, codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := r.Header.Get("Authorization")

			raw, ok := strings.CutPrefix(hdr, "Bearer ")
			if !ok || raw == "" {
				unauthorized(w, r)
				return
			}

			claims, err := codec.Verify(token.Access, raw)
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims.SubjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(ctxKey{}).(int64)
	return uid, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Unauthorized("invalid or expired access token"))
}
