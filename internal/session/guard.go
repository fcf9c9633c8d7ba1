package session

import "github.com/frahmantamala/rahat-dashboard/internal/access"

type Decision int

const (
	// DecisionPending means the session is still loading and nothing may render.
	DecisionPending Decision = iota
	DecisionAllow
	DecisionRedirectSignIn
	DecisionRedirectHome
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionRedirectSignIn:
		return "redirect_sign_in"
	case DecisionRedirectHome:
		return "redirect_home"
	default:
		return "pending"
	}
}

// Target is where the viewer is sent for a redirect decision.
func (p *Provider) Target(d Decision) string {
	switch d {
	case DecisionRedirectSignIn:
		return p.signInPath
	case DecisionRedirectHome:
		return HomePath
	default:
		return ""
	}
}

// Evaluate decides whether path may render for the settled session. Navigation
// and notification run after the state lock is released and at most once: once
// per failed fetch for sign-in, once per session and path for home.
func (p *Provider) Evaluate(path string) Decision {
	p.mu.Lock()
	st := p.state
	if st.IsLoading || !st.Fetched {
		p.mu.Unlock()
		return DecisionPending
	}

	var (
		decision Decision
		message  string
		target   string
	)

	switch {
	case !st.IsAuthenticated:
		decision = DecisionRedirectSignIn
		if p.signInRedirectedFor != p.generation {
			p.signInRedirectedFor = p.generation
			message, target = MessageNotAuthenticated, p.signInPath
		}
	case !p.canAccess(st, path):
		decision = DecisionRedirectHome
		key := st.Session.ID + "\x00" + path
		if _, done := p.homeRedirected[key]; !done {
			p.homeRedirected[key] = struct{}{}
			message, target = MessagePermissionDenied, HomePath
		}
	default:
		decision = DecisionAllow
	}
	p.mu.Unlock()

	if target != "" {
		p.logger.Info("page guard redirect", "path", path, "decision", decision.String(), "target", target)
		p.notifier.Notify(message)
		p.navigator.Navigate(target)
	}
	return decision
}

// Allows applies a page gate to the viewer. Gates deny while loading.
func (p *Provider) Allows(g access.Gate) bool {
	st := p.State()
	if st.IsLoading || !st.IsAuthenticated {
		return false
	}
	return g.Allows(st.RahatRole())
}
