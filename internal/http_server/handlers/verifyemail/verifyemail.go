package verifyemail

import (
	"errors"
	"log/slog"
	"net/http"

	"travel_auth/internal/auth"
	resp "travel_auth/internal/lib/api/response"
	sl "travel_auth/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	Token string `json:"token"`
}

type Response struct {
	resp.Response
}

// New confirms an email address. Mail links arrive as GET ?token=..., the
// client posts {token} — both shapes land here.
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verifyemail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		tok := r.URL.Query().Get("token")
		if tok == "" {
			var req Request
			if err := render.DecodeJSON(r.Body, &req); err == nil {
				tok = req.Token
			}
		}

		if tok == "" {
			log.Warn("missing verification token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		if err := authService.VerifyEmail(r.Context(), tok); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				log.Warn("invalid verification token")

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ErrorCode("invalid or expired token", resp.CodeInvalidToken))

				return
			}

			log.Error("failed to mark user as verified", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("email verified successfully")

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}
