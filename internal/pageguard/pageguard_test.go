package pageguard

import (
	"context"
	"testing"
	"time"

	"travel_auth/internal/config"
	"travel_auth/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard() *Guard {
	return New(
		[]string{"login.html", "register.html", "forgot.html", "reset.html"},
		"login.html",
		"index.html",
	)
}

func issueAccess(t *testing.T, ttl time.Duration) string {
	t.Helper()

	codec := token.New(
		config.Secrets{Access: "s", Refresh: "r", Reset: "rs", Verify: "v"},
		config.Tokens{AccessTokenTTL: ttl},
	)

	tok, _, err := codec.Issue(token.Access, 1)
	require.NoError(t, err)
	return tok
}

func TestClassify(t *testing.T) {
	g := testGuard()

	assert.Equal(t, Public, g.Classify("login.html"))
	assert.Equal(t, Public, g.Classify("/some/dir/register.html"))
	assert.Equal(t, Protected, g.Classify("profile.html"))
	assert.Equal(t, Protected, g.Classify(""), "empty path is the home page")
}

func TestEvaluate(t *testing.T) {
	g := testGuard()
	valid := issueAccess(t, 15*time.Minute)
	expired := issueAccess(t, -time.Minute)

	tests := []struct {
		name string
		page string
		st   State
		want Decision
	}{
		{
			name: "login page, no token, stay",
			page: "login.html",
			st:   State{},
			want: Decision{Action: ActionStay},
		},
		{
			name: "login page, valid token, go home",
			page: "login.html",
			st:   State{AccessToken: valid},
			want: Decision{Action: ActionRedirect, Target: "index.html"},
		},
		{
			name: "protected page, valid token, render",
			page: "profile.html",
			st:   State{AccessToken: valid},
			want: Decision{Action: ActionStay},
		},
		{
			name: "protected page, no token, go to login",
			page: "profile.html",
			st:   State{},
			want: Decision{Action: ActionRedirect, Target: "login.html"},
		},
		{
			name: "protected page, expired token, go to login",
			page: "profile.html",
			st:   State{AccessToken: expired},
			want: Decision{Action: ActionRedirect, Target: "login.html"},
		},
		{
			name: "protected page, garbage token, go to login",
			page: "profile.html",
			st:   State{AccessToken: "garbage"},
			want: Decision{Action: ActionRedirect, Target: "login.html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Evaluate(tt.page, tt.st))
		})
	}
}

func TestEvaluate_NoRedirectLoop(t *testing.T) {
	g := testGuard()
	valid := issueAccess(t, 15*time.Minute)

	// Login page with a token redirects home exactly once: reloading the
	// landing page itself decides to stay.
	d := g.Evaluate("login.html", State{AccessToken: valid})
	require.Equal(t, ActionRedirect, d.Action)
	require.Equal(t, "index.html", d.Target)

	d = g.Evaluate(d.Target, State{AccessToken: valid})
	assert.Equal(t, ActionStay, d.Action)

	// Same for the login-redirect of an anonymous visitor.
	d = g.Evaluate("profile.html", State{})
	require.Equal(t, ActionRedirect, d.Action)

	d = g.Evaluate(d.Target, State{})
	assert.Equal(t, ActionStay, d.Action)
}

func TestReconcile(t *testing.T) {
	g := testGuard()
	valid := issueAccess(t, 15*time.Minute)
	ctx := context.Background()

	fixed := func(r IntrospectResult) IntrospectFunc {
		return func(context.Context, string) IntrospectResult { return r }
	}

	// Authoritative rejection demotes and clears state.
	d, clear := g.Reconcile(ctx, "profile.html", State{AccessToken: valid}, fixed(IntrospectRejected))
	assert.Equal(t, Decision{Action: ActionRedirect, Target: "login.html"}, d)
	assert.True(t, clear)

	// Network failure does not.
	d, clear = g.Reconcile(ctx, "profile.html", State{AccessToken: valid}, fixed(IntrospectUnreachable))
	assert.Equal(t, ActionStay, d.Action)
	assert.False(t, clear)

	d, clear = g.Reconcile(ctx, "profile.html", State{AccessToken: valid}, fixed(IntrospectOK))
	assert.Equal(t, ActionStay, d.Action)
	assert.False(t, clear)

	// Public pages and tokenless loads have nothing to reconcile.
	introspectCalled := false
	d, clear = g.Reconcile(ctx, "login.html", State{AccessToken: valid}, func(context.Context, string) IntrospectResult {
		introspectCalled = true
		return IntrospectRejected
	})
	assert.Equal(t, ActionStay, d.Action)
	assert.False(t, clear)
	assert.False(t, introspectCalled)
}

func TestStore(t *testing.T) {
	var s Store

	_, ok := s.Load()
	assert.False(t, ok)

	s.Save(State{AccessToken: "tok", RefreshCookiePresent: true})
	st, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "tok", st.AccessToken)

	s.Clear()
	st, ok = s.Load()
	assert.False(t, ok)
	assert.Empty(t, st.AccessToken)
}
