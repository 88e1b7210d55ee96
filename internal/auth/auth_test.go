package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"travel_auth/internal/config"
	"travel_auth/internal/lib/mail"
	"travel_auth/internal/models"
	"travel_auth/internal/storage/memory"
	"travel_auth/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	mu   sync.Mutex
	used map[string]bool
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{used: make(map[string]bool)}
}

func (m *fakeMarker) MarkTokenUsed(_ context.Context, jti string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.used[jti] {
		return false, nil
	}
	m.used[jti] = true
	return true, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) last(t *testing.T) models.Message {
	t.Helper()

	p.mu.Lock()
	defer p.mu.Unlock()

	require.NotEmpty(t, p.msgs, "expected a published message")
	return p.msgs[len(p.msgs)-1]
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type fixture struct {
	auth  *Auth
	codec *token.Codec
	pub   *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := token.New(
		config.Secrets{Access: "a", Refresh: "r", Reset: "rs", Verify: "v"},
		config.Tokens{
			AccessTokenTTL:       15 * time.Minute,
			RefreshTokenTTL:      7 * 24 * time.Hour,
			ResetTokenTTL:        30 * time.Minute,
			VerificationTokenTTL: 24 * time.Hour,
		},
	)

	store := memory.New()
	pub := &fakePublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := New(log, store, store, newFakeMarker(), codec, pub, "http://localhost:3000", 4)

	return &fixture{auth: a, codec: codec, pub: pub}
}

// tokenFromLink pulls the signed token out of a mailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	_, tok, ok := strings.Cut(link, "token=")
	require.True(t, ok, "link %q has no token", link)
	return tok
}

func (f *fixture) registerVerified(t *testing.T, email, pass string) int64 {
	t.Helper()

	ctx := context.Background()

	id, err := f.auth.Register(ctx, email, "someone", pass)
	require.NoError(t, err)

	msg := f.pub.last(t)
	require.Equal(t, mail.PurposeVerification, msg.Purpose)
	require.NoError(t, f.auth.VerifyEmail(ctx, tokenFromLink(t, msg.Link)))

	return id
}

func TestRegisterLoginRefresh_SubjectRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.registerVerified(t, "Traveler@Example.com", "hunter2secret")

	// Lookup is case-normalized.
	access, refresh, user, err := f.auth.Login(ctx, "traveler@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)

	claims, err := f.codec.Verify(token.Access, access)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SubjectID)

	access2, _, err := f.auth.Refresh(ctx, refresh)
	require.NoError(t, err)

	claims, err = f.codec.Verify(token.Access, access2)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SubjectID)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(t, "u@example.com", "correct-password")

	_, _, _, err := f.auth.Login(context.Background(), "u@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmailSameOutcome(t *testing.T) {
	f := newFixture(t)

	_, _, _, err := f.auth.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnverifiedGetsNoTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "new@example.com", "new", "hunter2secret")
	require.NoError(t, err)

	access, refresh, _, err := f.auth.Login(ctx, "new@example.com", "hunter2secret")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "dup@example.com", "one", "hunter2secret")
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, "DUP@example.com", "two", "otherpassword")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRefresh_RotationConsumesOldToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "r@example.com", "hunter2secret")

	_, refresh, _, err := f.auth.Login(ctx, "r@example.com", "hunter2secret")
	require.NoError(t, err)

	_, refresh2, err := f.auth.Refresh(ctx, refresh)
	require.NoError(t, err)
	require.NotEqual(t, refresh, refresh2)

	// Replaying the consumed token fails, the rotated one still works.
	_, _, err = f.auth.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = f.auth.Refresh(ctx, refresh2)
	assert.NoError(t, err)
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.auth.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "l@example.com", "hunter2secret")

	_, refresh, _, err := f.auth.Login(ctx, "l@example.com", "hunter2secret")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, refresh))

	_, _, err = f.auth.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Logout with nothing to revoke is still fine.
	assert.NoError(t, f.auth.Logout(ctx, ""))
	assert.NoError(t, f.auth.Logout(ctx, "garbage"))
}

func TestVerifyEmail_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "v@example.com", "v", "hunter2secret")
	require.NoError(t, err)

	tok := tokenFromLink(t, f.pub.last(t).Link)

	require.NoError(t, f.auth.VerifyEmail(ctx, tok))
	assert.NoError(t, f.auth.VerifyEmail(ctx, tok), "re-clicking the link is not an error")

	assert.ErrorIs(t, f.auth.VerifyEmail(ctx, "garbage"), ErrInvalidToken)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "rv@example.com", "rv", "hunter2secret")
	require.NoError(t, err)

	before := f.pub.count()
	require.NoError(t, f.auth.ResendVerification(ctx, "rv@example.com"))
	assert.Equal(t, before+1, f.pub.count())

	// Unknown and already-verified addresses return the same nil outcome
	// and publish nothing.
	require.NoError(t, f.auth.VerifyEmail(ctx, tokenFromLink(t, f.pub.last(t).Link)))

	before = f.pub.count()
	assert.NoError(t, f.auth.ResendVerification(ctx, "rv@example.com"))
	assert.NoError(t, f.auth.ResendVerification(ctx, "ghost@example.com"))
	assert.Equal(t, before, f.pub.count())
}

func TestForgotPassword_AntiEnumeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "known@example.com", "hunter2secret")

	before := f.pub.count()

	require.NoError(t, f.auth.ForgotPassword(ctx, "known@example.com"))
	require.NoError(t, f.auth.ForgotPassword(ctx, "unknown@example.com"))

	// Same outcome either way; only the existing account got a mail.
	assert.Equal(t, before+1, f.pub.count())
	assert.Equal(t, mail.PurposeReset, f.pub.last(t).Purpose)
}

func TestResetPassword_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "rp@example.com", "old-password-1")

	require.NoError(t, f.auth.ForgotPassword(ctx, "rp@example.com"))
	resetTok := tokenFromLink(t, f.pub.last(t).Link)

	require.NoError(t, f.auth.ResetPassword(ctx, resetTok, "new-password-2"))

	_, _, _, err := f.auth.Login(ctx, "rp@example.com", "old-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = f.auth.Login(ctx, "rp@example.com", "new-password-2")
	assert.NoError(t, err)

	// The reset token is single-use.
	err = f.auth.ResetPassword(ctx, resetTok, "another-password-3")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.registerVerified(t, "p@example.com", "hunter2secret")

	name := "wanderer"
	img := "media/abc123"
	user, err := f.auth.UpdateProfile(ctx, id, models.ProfilePatch{Username: &name, ProfileImg: &img})
	require.NoError(t, err)
	assert.Equal(t, "wanderer", user.Username)
	assert.Equal(t, "media/abc123", user.ProfileImg)

	got, err := f.auth.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.Summary(), got.Summary())
}
