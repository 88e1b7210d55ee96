package logout

import (
	"log/slog"
	"net/http"

	"travel_auth/internal/auth"
	"travel_auth/internal/http_server/cookie"
	resp "travel_auth/internal/lib/api/response"
	sl "travel_auth/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	RefreshToken string `json:"refresh_token"`
}

type Response struct {
	resp.Response
}

// New clears the refresh cookie and best-effort revokes the presented
// refresh token. Logout never fails from the client's point of view:
// access tokens already copied elsewhere stay valid until expiry.
func New(
	log *slog.Logger,
	authService *auth.Auth,
	secureCookies bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		rawRefresh := cookie.RefreshFromRequest(r)
		if rawRefresh == "" {
			var req Request
			if err := render.DecodeJSON(r.Body, &req); err == nil {
				rawRefresh = req.RefreshToken
			}
		}

		if err := authService.Logout(r.Context(), rawRefresh); err != nil {
			log.Error("failed to revoke refresh token", sl.Err(err))
		}

		cookie.ClearRefresh(w, secureCookies)

		log.Info("user logged out")

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}
