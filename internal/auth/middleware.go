package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/access"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	"github.com/frahmantamala/rahat-dashboard/internal/session"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

type MiddlewareConfig struct {
	Table       *access.Table
	StaleTime   time.Duration
	SignInPath  string
	FlashCookie string
}

type Middleware struct {
	*transport.BaseHandler
	fetcher session.Fetcher
	cache   *cache.Cache
	cfg     MiddlewareConfig
}

func NewMiddleware(base *transport.BaseHandler, fetcher session.Fetcher, c *cache.Cache, cfg MiddlewareConfig) *Middleware {
	if cfg.Table == nil {
		cfg.Table = access.DefaultTable()
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = session.DefaultSignInPath
	}
	if cfg.FlashCookie == "" {
		cfg.FlashCookie = transport.DefaultFlashCookie
	}
	if c == nil {
		c = cache.New(cache.WithLogger(base.Logger))
	}
	return &Middleware{BaseHandler: base, fetcher: fetcher, cache: c, cfg: cfg}
}

// effects collects what the session guard asked for while handling one request.
type effects struct {
	target string
	notice string
}

type effectsKey struct{}

func effectsFrom(ctx context.Context) *effects {
	if fx, ok := ctx.Value(effectsKey{}).(*effects); ok {
		return fx
	}
	return &effects{}
}

// Credentials forwards the browser's cookies, minus the dashboard's own flash
// cookie, as the viewer's credentials for every backend call.
func (m *Middleware) Credentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var parts []string
		for _, c := range r.Cookies() {
			if c.Name == m.cfg.FlashCookie {
				continue
			}
			parts = append(parts, c.Name+"="+c.Value)
		}
		ctx := errors.ContextWithCredentials(r.Context(), errors.Credentials{Cookie: strings.Join(parts, "; ")})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoadSession settles the viewer's session before the handler runs. Snapshots
// are shared through the query cache so repeated requests stay off the backend.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fx := &effects{}
		scope := cache.ScopeFor(errors.CredentialsFromContext(ctx).Cookie)

		p := session.NewProvider(m.fetcher,
			session.WithTable(m.cfg.Table),
			session.WithCache(m.cache, scope, m.cfg.StaleTime),
			session.WithSignInPath(m.cfg.SignInPath),
			session.WithLogger(logger.From(ctx)),
			session.WithNavigator(session.NavigatorFunc(func(path string) { fx.target = path })),
			session.WithNotifier(session.NotifierFunc(func(message string) { fx.notice = message })),
		)

		st := p.Init(ctx)

		ctx = session.ContextWithProvider(ctx, p)
		ctx = context.WithValue(ctx, effectsKey{}, fx)
		if st.IsAuthenticated {
			ctx = errors.ContextWithUserID(ctx, st.User.ID)
			ctx = errors.ContextWithRahatRole(ctx, st.RahatRole())
			ctx = logger.With(ctx, "user_id", st.User.ID, "rahat_role", st.RahatRole())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PageGuard renders a page only for a viewer the role-access table lets in.
// Everyone else is sent to sign-in or home with a one-shot notice.
func (m *Middleware) PageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := session.ProviderFromContext(r.Context())
		if p == nil {
			m.WriteAppError(w, errors.ErrNotAuthenticated)
			return
		}

		decision := p.Evaluate(r.URL.Path)
		switch decision {
		case session.DecisionAllow:
			next.ServeHTTP(w, r)
		case session.DecisionPending:
			w.Header().Set("Retry-After", "1")
			m.WriteError(w, http.StatusServiceUnavailable, "session is still loading")
		default:
			if fx := effectsFrom(r.Context()); fx.notice != "" {
				transport.SetFlash(w, m.cfg.FlashCookie, fx.notice)
			}
			http.Redirect(w, r, p.Target(decision), http.StatusSeeOther)
		}
	})
}

func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := session.ProviderFromContext(r.Context())
		if p == nil || !p.IsAuthenticated() {
			m.WriteAppError(w, errors.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGate lets a request through only when the viewer's role is in the gate.
func (m *Middleware) RequireGate(g access.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := session.ProviderFromContext(r.Context())
			if p == nil || !p.IsAuthenticated() {
				m.WriteAppError(w, errors.ErrNotAuthenticated)
				return
			}
			if !p.Allows(g) {
				m.Logger.Warn("gate denied", "gate", g.Name(), "rahat_role", p.State().RahatRole(), "path", r.URL.Path)
				m.WriteAppError(w, errors.ErrRoleForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
