package refresh

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

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
	AccessToken string `json:"access_token"`
}

// New rotates the token pair. Browsers carry the refresh token in the
// httpOnly cookie; the JSON body is a fallback for non-browser clients.
func New(
	log *slog.Logger,
	authService *auth.Auth,
	refreshTTL time.Duration,
	secureCookies bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

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

		if rawRefresh == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.ErrorCode("missing refresh token", resp.CodeInvalidToken))

			return
		}

		accessToken, newRefreshToken, err := authService.Refresh(r.Context(), rawRefresh)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				cookie.ClearRefresh(w, secureCookies)

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.ErrorCode("invalid or expired refresh token", resp.CodeInvalidToken))

				return
			}

			log.Error("failed to refresh tokens", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		cookie.SetRefresh(w, newRefreshToken, time.Now().Add(refreshTTL), secureCookies)

		log.Info("Tokens refreshed successfully")

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: accessToken,
		})
	}
}
