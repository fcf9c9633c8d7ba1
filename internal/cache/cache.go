// Package cache is the dashboard's query cache. Entries are keyed by a viewer
// scope plus a key path such as ["cases", id, "workflow-status"]; mutations
// invalidate by key prefix across every scope.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// AnonymousScope is used for callers that present no credentials.
const AnonymousScope = "anonymous"

const (
	sweepInterval = time.Minute
	// pendingGrace is how long an unfilled slot may wait on its first fetch before a sweep drops it.
	pendingGrace = time.Minute
)

// Key identifies a cached query. Keys nest: ["cases"] is a prefix of ["cases", "all", "page=1"].
type Key []string

func NewKey(parts ...string) Key {
	return Key(parts)
}

func (k Key) Append(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// ScopeFor derives a stable, non-reversible scope from the credential a viewer presented.
func ScopeFor(credential string) string {
	if credential == "" {
		return AnonymousScope
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:16])
}

type slot struct {
	scope    string
	key      Key
	gen      uint64
	value    any
	created  time.Time
	storedAt time.Time
	ttl      time.Duration
	filled   bool
	stale    bool
}

func (s *slot) fresh(now time.Time) bool {
	return s.filled && !s.stale && now.Sub(s.storedAt) < s.ttl
}

type Cache struct {
	mu     sync.Mutex
	slots  map[string]*slot
	group  singleflight.Group
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		slots:  make(map[string]*slot),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func slotID(scope string, key Key) string {
	return scope + "\x00" + strings.Join(key, "\x00")
}

// Get returns a fresh value only. Stale or missing entries report false.
func (c *Cache) Get(scope string, key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[slotID(scope, key)]
	if !ok || !s.fresh(c.now()) {
		return nil, false
	}
	return s.value, true
}

// Do returns the cached value when fresh, otherwise runs fetch. Concurrent
// callers of the same key and generation share one fetch. A result whose fetch
// started before an invalidation of its key is still returned but never stored.
func (c *Cache) Do(ctx context.Context, scope string, key Key, ttl time.Duration, fetch func(ctx context.Context) (any, error)) (any, error) {
	id := slotID(scope, key)

	c.mu.Lock()
	s, ok := c.slots[id]
	if !ok {
		s = &slot{scope: scope, key: append(Key(nil), key...), created: c.now()}
		c.slots[id] = s
	}
	if s.fresh(c.now()) {
		v := s.value
		c.mu.Unlock()
		return v, nil
	}
	gen := s.gen
	c.mu.Unlock()

	flight := id + "\x00#" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			c.forget(id, s)
			return nil, err
		}
		c.store(id, s, gen, value, ttl)
		return value, nil
	})
	return v, err
}

func (c *Cache) store(id string, s *slot, gen uint64, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.slots[id]; !ok || current != s || s.gen != gen {
		c.logger.Debug("discarding stale query result", "key", s.key.String())
		return
	}
	s.value = value
	s.storedAt = c.now()
	s.ttl = ttl
	s.filled = true
	s.stale = false
}

// forget drops a slot whose fetch failed, unless a newer result has filled it.
func (c *Cache) forget(id string, s *slot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.slots[id]; ok && current == s && !s.fresh(c.now()) {
		delete(c.slots, id)
	}
}

// Sweep drops expired and invalidated entries, and slots whose first fetch never finished.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for id, s := range c.slots {
		if s.fresh(now) {
			continue
		}
		if !s.filled && !s.stale && now.Sub(s.created) < pendingGrace {
			continue
		}
		delete(c.slots, id)
		n++
	}
	if n > 0 {
		c.logger.Debug("swept queries", "count", n)
	}
	return n
}

// Run sweeps the cache every minute until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Set stores a value directly, for example the payload a mutation returned.
func (c *Cache) Set(scope string, key Key, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := slotID(scope, key)
	s, ok := c.slots[id]
	if !ok {
		s = &slot{scope: scope, key: append(Key(nil), key...), created: c.now()}
		c.slots[id] = s
	}
	s.value = value
	s.storedAt = c.now()
	s.ttl = ttl
	s.filled = true
	s.stale = false
}

// Invalidate marks stale every entry in every scope whose key starts with one of
// the prefixes, and bumps the generation so in-flight results are discarded.
func (c *Cache) Invalidate(prefixes ...Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.slots {
		for _, prefix := range prefixes {
			if s.key.HasPrefix(prefix) {
				s.gen++
				s.stale = true
				n++
				break
			}
		}
	}
	if n > 0 {
		c.logger.Debug("invalidated queries", "prefixes", keysString(prefixes), "count", n)
	}
	return n
}

// InvalidateScope is Invalidate restricted to one viewer.
func (c *Cache) InvalidateScope(scope string, prefixes ...Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.slots {
		if s.scope != scope {
			continue
		}
		for _, prefix := range prefixes {
			if s.key.HasPrefix(prefix) {
				s.gen++
				s.stale = true
				n++
				break
			}
		}
	}
	return n
}

// ClearScope drops everything cached for one viewer.
func (c *Cache) ClearScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.slots {
		if s.scope == scope {
			delete(c.slots, id)
		}
	}
}

// Len counts slots, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

func keysString(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "[" + k.String() + "]"
	}
	return strings.Join(parts, ",")
}

// Fetch is the typed form of Cache.Do.
func Fetch[T any](ctx context.Context, c *Cache, scope string, key Key, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Do(ctx, scope, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, nil
	}
	return typed, nil
}
