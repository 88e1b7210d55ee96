// Package pageguard decides, on every page load, whether the current page
// may render or must redirect, from the locally persisted session state.
// The decision is an explicit state machine with an idempotence guard so a
// redirect can never target the page it was made on.
package pageguard

import (
	"context"
	"path"
	"sync"
	"time"

	"travel_auth/internal/models"
	"travel_auth/internal/token"
)

type Classification int

const (
	Public Classification = iota
	Protected
)

type Action int

const (
	ActionStay Action = iota
	ActionRedirect
)

type Decision struct {
	Action Action
	Target string
}

// State is the client-held tuple persisted across page loads: the access
// token and user summary live in script-readable storage, the refresh
// token only as a cookie whose presence is all the guard can observe.
type State struct {
	AccessToken          string
	User                 *models.UserSummary
	RefreshCookiePresent bool
}

// IntrospectResult is the outcome of an authoritative server-side check.
// Unreachable is deliberately distinct from Rejected: a network failure
// must not log the user out.
type IntrospectResult int

const (
	IntrospectOK IntrospectResult = iota
	IntrospectRejected
	IntrospectUnreachable
)

type IntrospectFunc func(ctx context.Context, accessToken string) IntrospectResult

type Guard struct {
	public    map[string]bool
	loginPage string
	homePage  string
	now       func() time.Time
}

func New(publicPages []string, loginPage, homePage string) *Guard {
	public := make(map[string]bool, len(publicPages))
	for _, p := range publicPages {
		public[p] = true
	}

	return &Guard{
		public:    public,
		loginPage: loginPage,
		homePage:  homePage,
		now:       time.Now,
	}
}

func (g *Guard) Classify(page string) Classification {
	if g.public[g.normalize(page)] {
		return Public
	}
	return Protected
}

// Evaluate runs the render-blocking decision. The token check here is the
// cheap optimistic one (expiry claim only); Reconcile does the
// authoritative follow-up.
func (g *Guard) Evaluate(currentPage string, st State) Decision {
	page := g.normalize(currentPage)
	authenticated := g.tokenUsable(st.AccessToken)

	if g.public[page] {
		if authenticated {
			// A logged-in user has no business on the login screen.
			return g.redirect(page, g.homePage)
		}
		return Decision{Action: ActionStay}
	}

	if authenticated {
		return Decision{Action: ActionStay}
	}

	return g.redirect(page, g.loginPage)
}

// Reconcile runs after the page has rendered optimistically. It demotes to
// logged-out only on an authoritative rejection; on transport failure the
// optimistic decision stands until the next request's 401 settles it. The
// second return value tells the caller to clear persisted state.
func (g *Guard) Reconcile(ctx context.Context, currentPage string, st State, introspect IntrospectFunc) (Decision, bool) {
	page := g.normalize(currentPage)

	if g.public[page] || st.AccessToken == "" {
		return Decision{Action: ActionStay}, false
	}

	if introspect(ctx, st.AccessToken) == IntrospectRejected {
		return g.redirect(page, g.loginPage), true
	}

	return Decision{Action: ActionStay}, false
}

// redirect is the idempotence guard: already standing on the target means
// no-op, which is what breaks redirect loops.
func (g *Guard) redirect(current, target string) Decision {
	if current == target {
		return Decision{Action: ActionStay}
	}
	return Decision{Action: ActionRedirect, Target: target}
}

func (g *Guard) normalize(page string) string {
	name := path.Base(page)
	if name == "" || name == "." || name == "/" {
		return g.homePage
	}
	return name
}

// tokenUsable is the local optimistic check: present and, as far as the
// unverified expiry claim says, not yet expired. Signature verification is
// the server's job.
func (g *Guard) tokenUsable(accessToken string) bool {
	if accessToken == "" {
		return false
	}

	claims, err := token.InspectUnverified(accessToken)
	if err != nil {
		return false
	}

	return g.now().Before(claims.ExpiresAt)
}

// Store is the persisted client state. Mirrors the localStorage semantics:
// overwritten on login/refresh, cleared on logout or an authoritative 401.
// Multiple tabs may race on Clear; the next 401 settles it.
type Store struct {
	mu    sync.Mutex
	state State
	set   bool
}

func (s *Store) Save(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = st
	s.set = true
}

func (s *Store) Load() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state, s.set
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{}
	s.set = false
}
