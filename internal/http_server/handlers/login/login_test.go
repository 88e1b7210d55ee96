package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel_auth/internal/auth"
	"travel_auth/internal/config"
	"travel_auth/internal/http_server/cookie"
	"travel_auth/internal/http_server/handlers/login"
	resp "travel_auth/internal/lib/api/response"
	"travel_auth/internal/models"
	"travel_auth/internal/storage/memory"
	"travel_auth/internal/token"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopMarker struct{}

func (noopMarker) MarkTokenUsed(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

type noopPublisher struct{}

func (noopPublisher) SendMessage(context.Context, models.Message) error { return nil }

type fixture struct {
	handler http.HandlerFunc
	auth    *auth.Auth
	codec   *token.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := token.New(
		config.Secrets{Access: "a", Refresh: "r", Reset: "rs", Verify: "v"},
		config.Tokens{
			AccessTokenTTL:       15 * time.Minute,
			RefreshTokenTTL:      time.Hour,
			VerificationTokenTTL: time.Hour,
		},
	)

	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	authService := auth.New(log, store, store, noopMarker{}, codec, noopPublisher{}, "http://localhost", 4)

	return &fixture{
		handler: login.New(log, validator.New(), authService, time.Hour, false),
		auth:    authService,
		codec:   codec,
	}
}

func (f *fixture) register(t *testing.T, email, pass string, verified bool) {
	t.Helper()

	ctx := context.Background()

	id, err := f.auth.Register(ctx, email, "tester", pass)
	require.NoError(t, err)

	if verified {
		verifyTok, _, err := f.codec.Issue(token.Verify, id)
		require.NoError(t, err)
		require.NoError(t, f.auth.VerifyEmail(ctx, verifyTok))
	}
}

func (f *fixture) do(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(b))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	return rr
}

func TestLoginHandler_Success(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ok@example.com", "hunter2secret", true)

	rr := f.do(t, map[string]string{"email": "ok@example.com", "password": "hunter2secret"})

	require.Equal(t, http.StatusOK, rr.Code)

	var body login.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, resp.StatusSuccess, body.Status)
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "ok@example.com", body.User.Email)

	var refreshCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == cookie.RefreshCookie {
			refreshCookie = c
		}
	}
	require.NotNil(t, refreshCookie, "refresh cookie must be set")
	assert.True(t, refreshCookie.HttpOnly)
	assert.Equal(t, "/auth", refreshCookie.Path)
	assert.NotEmpty(t, refreshCookie.Value)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "wp@example.com", "hunter2secret", true)

	rr := f.do(t, map[string]string{"email": "wp@example.com", "password": "nope-nope"})

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var body resp.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, resp.StatusUnauthorized, body.Status)
}

func TestLoginHandler_UnverifiedCode(t *testing.T) {
	f := newFixture(t)
	f.register(t, "uv@example.com", "hunter2secret", false)

	rr := f.do(t, map[string]string{"email": "uv@example.com", "password": "hunter2secret"})

	require.Equal(t, http.StatusForbidden, rr.Code)

	var body resp.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, resp.CodeEmailNotVerified, body.Code)
	assert.Empty(t, rr.Result().Cookies(), "no refresh cookie for unverified login")
}

func TestLoginHandler_ValidationError(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, map[string]string{"email": "not-an-email", "password": ""})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
