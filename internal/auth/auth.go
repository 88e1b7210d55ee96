package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"travel_auth/internal/lib/mail"
	sl "travel_auth/internal/lib/logger"
	"travel_auth/internal/models"
	"travel_auth/internal/storage"
	"travel_auth/internal/token"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type UserSaver interface {
	SaveUser(ctx context.Context, email string, username string, passHash []byte) (uid int64, err error)
	SetEmailVerified(ctx context.Context, uid int64) error
	SetPasswordHash(ctx context.Context, uid int64, passHash []byte) error
	UpdateProfile(ctx context.Context, uid int64, patch models.ProfilePatch) (models.User, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

// TokenMarker records consumed token ids; the first caller wins. Backed by
// redis SETNX in production.
type TokenMarker interface {
	MarkTokenUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	marker      TokenMarker
	codec       *token.Codec
	pub         Publisher
	clientURL   string
	bcryptCost  int
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	marker TokenMarker,
	codec *token.Codec,
	pub Publisher,
	clientURL string,
	bcryptCost int,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		marker:      marker,
		codec:       codec,
		pub:         pub,
		clientURL:   clientURL,
		bcryptCost:  bcryptCost,
	}
}

// NormalizeEmail lowercases and trims an address; the store only ever sees
// the normalized form, so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Auth) Register(ctx context.Context, email, username, pass string) (int64, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	email = NormalizeEmail(email)

	passHash, err := bcrypt.GenerateFromPassword([]byte(pass), a.bcryptCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, username, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return 0, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendVerification(ctx, id, email); err != nil {
		// The account exists; the resend endpoint covers a lost mail.
		log.Error("failed to publish verification mail", sl.Err(err))
	}

	log.Info("user registered", slog.Int64("uid", id))

	return id, nil
}

// Login checks credentials and mints an access/refresh pair. Unknown email
// and wrong password collapse into the same outcome; an unverified account
// is a distinguishable policy gate and never receives tokens.
func (a *Auth) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user models.User, err error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err = a.usrProvider.User(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", "", models.User{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials")
		return "", "", models.User{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return "", "", models.User{}, ErrEmailNotVerified
	}

	accessToken, refreshToken, err = a.issuePair(user.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return "", "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return accessToken, refreshToken, user, nil
}

// Refresh rotates the token pair. The presented refresh token is consumed
// atomically by marking its jti; a replay of the same token, including the
// second of two near-simultaneous calls, is rejected as invalid.
func (a *Auth) Refresh(ctx context.Context, rawRefresh string) (string, string, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	claims, err := a.codec.Verify(token.Refresh, rawRefresh)
	if err != nil {
		log.Warn("refresh token rejected", sl.Err(err))
		return "", "", ErrInvalidToken
	}

	first, err := a.marker.MarkTokenUsed(ctx, claims.JTI, time.Until(claims.ExpiresAt))
	if err != nil {
		log.Error("failed to consume refresh token", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, storage.ErrUnavailable)
	}
	if !first {
		log.Warn("refresh token replay", slog.Int64("uid", claims.SubjectID))
		return "", "", ErrInvalidToken
	}

	user, err := a.usrProvider.UserByID(ctx, claims.SubjectID)
	if err != nil {
		log.Warn("refresh for unknown user", sl.Err(err))
		return "", "", ErrInvalidToken
	}

	accessToken, refreshToken, err := a.issuePair(user.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.Int64("uid", user.ID))

	return accessToken, refreshToken, nil
}

// Logout consumes the presented refresh token so it cannot mint further
// access tokens. Access tokens already issued stay valid until expiry;
// clearing the client copy is the caller's side of the contract, so an
// invalid or absent token is not an error here.
func (a *Auth) Logout(ctx context.Context, rawRefresh string) error {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	if rawRefresh == "" {
		return nil
	}

	claims, err := a.codec.Verify(token.Refresh, rawRefresh)
	if err != nil {
		return nil
	}

	if _, err := a.marker.MarkTokenUsed(ctx, claims.JTI, time.Until(claims.ExpiresAt)); err != nil {
		log.Error("failed to revoke refresh token", sl.Err(err))
		return nil
	}

	log.Info("logout successful", slog.Int64("uid", claims.SubjectID))

	return nil
}

// VerifyEmail flips the verification flag. Re-clicking an already used
// link is idempotent success, not an error.
func (a *Auth) VerifyEmail(ctx context.Context, rawToken string) error {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	claims, err := a.codec.Verify(token.Verify, rawToken)
	if err != nil {
		log.Warn("verification token rejected", sl.Err(err))
		return ErrInvalidToken
	}

	user, err := a.usrProvider.UserByID(ctx, claims.SubjectID)
	if err != nil {
		log.Warn("verification for unknown user", sl.Err(err))
		return ErrInvalidToken
	}

	if user.IsVerified {
		return nil
	}

	if err := a.usrSaver.SetEmailVerified(ctx, user.ID); err != nil {
		log.Error("failed to set verified flag", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.Int64("uid", user.ID))

	return nil
}

// ResendVerification republishes the verification mail for an unverified
// account. The outcome is the same whether the account exists, is already
// verified, or not: callers cannot probe the directory through it.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified {
		return nil
	}

	if err := a.sendVerification(ctx, user.ID, user.Email); err != nil {
		log.Error("failed to publish verification mail", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ForgotPassword always succeeds from the caller's point of view. Only an
// existing account gets a reset mail; nothing about the response or its
// timing says which case occurred.
func (a *Auth) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			log.Error("failed to get user", sl.Err(err))
		}
		return nil
	}

	resetToken, _, err := a.codec.Issue(token.Reset, user.ID)
	if err != nil {
		log.Error("failed to issue reset token", sl.Err(err))
		return nil
	}

	if err := a.pub.SendMessage(ctx, mail.ResetMessage(a.clientURL, user.Email, resetToken)); err != nil {
		log.Error("failed to publish reset mail", sl.Err(err))
	}

	return nil
}

// ResetPassword consumes a single-use reset token and stores the new hash.
// Existing access and refresh tokens for the user are not revoked; access
// tokens are stateless and age out on their own.
func (a *Auth) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(slog.String("op", op))

	claims, err := a.codec.Verify(token.Reset, rawToken)
	if err != nil {
		log.Warn("reset token rejected", sl.Err(err))
		return ErrInvalidToken
	}

	first, err := a.marker.MarkTokenUsed(ctx, claims.JTI, time.Until(claims.ExpiresAt))
	if err != nil {
		log.Error("failed to consume reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, storage.ErrUnavailable)
	}
	if !first {
		log.Warn("reset token replay", slog.Int64("uid", claims.SubjectID))
		return ErrInvalidToken
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.bcryptCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.SetPasswordHash(ctx, claims.SubjectID, passHash); err != nil {
		log.Error("failed to store new password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset", slog.Int64("uid", claims.SubjectID))

	return nil
}

func (a *Auth) Profile(ctx context.Context, uid int64) (models.User, error) {
	return a.usrProvider.UserByID(ctx, uid)
}

func (a *Auth) UpdateProfile(ctx context.Context, uid int64, patch models.ProfilePatch) (models.User, error) {
	const op = "auth.UpdateProfile"

	user, err := a.usrSaver.UpdateProfile(ctx, uid, patch)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (a *Auth) issuePair(uid int64) (string, string, error) {
	accessToken, _, err := a.codec.Issue(token.Access, uid)
	if err != nil {
		return "", "", err
	}

	refreshToken, _, err := a.codec.Issue(token.Refresh, uid)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (a *Auth) sendVerification(ctx context.Context, uid int64, email string) error {
	verifyToken, _, err := a.codec.Issue(token.Verify, uid)
	if err != nil {
		return err
	}

	return a.pub.SendMessage(ctx, mail.VerificationMessage(a.clientURL, email, verifyToken))
}
