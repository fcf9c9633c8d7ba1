// Package session holds the signed-in viewer's state for one dashboard view and
// decides, once the session fetch has settled, whether the current page may render.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/rahat-dashboard/internal/access"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
)

const (
	MessageNotAuthenticated = "You are not authenticated"
	MessagePermissionDenied = "You don't have permission to access this page"

	DefaultSignInPath = "/signin"
	HomePath          = "/"
	DefaultStaleTime  = 5 * time.Minute
)

// Key is the session query's cache key.
var Key = cache.NewKey("session")

type Fetcher interface {
	GetSession(ctx context.Context) (*userDatamodel.SessionSnapshot, error)
}

type Navigator interface {
	Navigate(path string)
}

type Notifier interface {
	Notify(message string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

type State struct {
	User            *userDatamodel.User    `json:"user,omitempty"`
	Session         *userDatamodel.Session `json:"session,omitempty"`
	IsAuthenticated bool                   `json:"isAuthenticated"`
	IsLoading       bool                   `json:"isLoading"`
	Fetched         bool                   `json:"fetched"`
	Err             error                  `json:"-"`
}

// RahatRole is the signed-in user's domain role, or "" when there is none.
func (s State) RahatRole() string {
	if s.User == nil {
		return ""
	}
	return s.User.RahatRole
}

type Provider struct {
	mu sync.Mutex

	fetcher    Fetcher
	table      *access.Table
	navigator  Navigator
	notifier   Notifier
	cache      *cache.Cache
	scope      string
	staleTime  time.Duration
	signInPath string
	now        func() time.Time
	logger     *slog.Logger

	state      State
	generation uint64

	signInRedirectedFor uint64
	homeRedirected      map[string]struct{}
}

type Option func(*Provider)

func WithTable(t *access.Table) Option {
	return func(p *Provider) { p.table = t }
}

func WithNavigator(n Navigator) Option {
	return func(p *Provider) { p.navigator = n }
}

func WithNotifier(n Notifier) Option {
	return func(p *Provider) { p.notifier = n }
}

// WithCache reads the session through the query cache under the viewer's scope.
func WithCache(c *cache.Cache, scope string, staleTime time.Duration) Option {
	return func(p *Provider) {
		p.cache = c
		p.scope = scope
		if staleTime > 0 {
			p.staleTime = staleTime
		}
	}
}

func WithSignInPath(path string) Option {
	return func(p *Provider) {
		if path != "" {
			p.signInPath = path
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

func NewProvider(fetcher Fetcher, opts ...Option) *Provider {
	p := &Provider{
		fetcher:        fetcher,
		table:          access.DefaultTable(),
		navigator:      NavigatorFunc(func(string) {}),
		notifier:       NotifierFunc(func(string) {}),
		staleTime:      DefaultStaleTime,
		signInPath:     DefaultSignInPath,
		now:            time.Now,
		logger:         slog.Default(),
		homeRedirected: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init loads the session when the view mounts. A fresh cached snapshot is reused.
func (p *Provider) Init(ctx context.Context) State {
	return p.load(ctx, false)
}

// Refresh drops the cached snapshot and fetches it again.
func (p *Provider) Refresh(ctx context.Context) State {
	return p.load(ctx, true)
}

// Clear is called on sign-out. It forgets the viewer and everything cached for them.
func (p *Provider) Clear() {
	p.mu.Lock()
	p.generation++
	p.state = State{Fetched: true}
	p.homeRedirected = make(map[string]struct{})
	p.signInRedirectedFor = p.generation
	p.mu.Unlock()

	if p.cache != nil {
		p.cache.ClearScope(p.scope)
	}
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Provider) IsAuthenticated() bool {
	return p.State().IsAuthenticated
}

// CanAccessPage looks up the viewer's rahat role in the page table. A viewer
// without a rahat role cannot open any page.
func (p *Provider) CanAccessPage(path string) bool {
	return p.canAccess(p.State(), path)
}

// AllowedPages lists page patterns for the viewer's role.
func (p *Provider) AllowedPages() []string {
	st := p.State()
	if st.RahatRole() == "" {
		return []string{}
	}
	return p.table.AllowedPatterns(st.RahatRole())
}

func (p *Provider) canAccess(st State, path string) bool {
	role := st.RahatRole()
	if role == "" {
		return false
	}
	return p.table.IsAllowed(role, path)
}

func (p *Provider) load(ctx context.Context, force bool) State {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.state.IsLoading = true
	p.mu.Unlock()

	snap, err := p.fetch(ctx, force)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		// a later load or a sign-out superseded this one
		return p.state
	}

	next := State{Fetched: true, Err: err}
	if err == nil && snap != nil && snap.User != nil && !snap.Session.Expired(p.now()) {
		next.User = snap.User
		next.Session = snap.Session
		next.IsAuthenticated = true
	}
	if err != nil {
		p.logger.Warn("session fetch failed", "error", err)
	}
	p.state = next
	return next
}

func (p *Provider) fetch(ctx context.Context, force bool) (*userDatamodel.SessionSnapshot, error) {
	if p.cache == nil {
		return p.fetcher.GetSession(ctx)
	}
	if force {
		p.cache.InvalidateScope(p.scope, Key)
	}
	return cache.Fetch(ctx, p.cache, p.scope, Key, p.staleTime, p.fetcher.GetSession)
}
