package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"travel_auth/internal/auth"
	resp "travel_auth/internal/lib/api/response"
	sl "travel_auth/internal/lib/logger"
	"travel_auth/internal/middleware/authn"
	"travel_auth/internal/models"
	"travel_auth/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type UpdateRequest struct {
	Username   *string `json:"username,omitempty" validate:"omitempty,min=2"`
	ProfileImg *string `json:"profile_img,omitempty"`
}

type Response struct {
	resp.Response
	User models.UserSummary `json:"user"`
}

// Get returns the authenticated user's record. Doubles as the page guard's
// introspection endpoint: a 401 here is the authoritative "logged out".
func Get(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.Get"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		uid, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Unauthorized("missing authentication"))

			return
		}

		user, err := authService.Profile(r.Context(), uid)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Unauthorized("unknown user"))

				return
			}

			log.Error("failed to load profile", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user.Summary(),
		})
	}
}

func Update(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.Update"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		uid, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Unauthorized("missing authentication"))

			return
		}

		var req UpdateRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		user, err := authService.UpdateProfile(r.Context(), uid, models.ProfilePatch{
			Username:   req.Username,
			ProfileImg: req.ProfileImg,
		})
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found"))

				return
			}

			log.Error("failed to update profile", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("profile updated", slog.Int64("uid", uid))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user.Summary(),
		})
	}
}
