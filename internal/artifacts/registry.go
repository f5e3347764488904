// Package artifacts hands out short-lived capability URLs for blobs loaded
// into a view. References are grouped in scopes; loading the same view again
// revokes the previous scope.
package artifacts

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrScopeClosed is returned when registering into a released or superseded scope.
var ErrScopeClosed = errors.New("artifact scope closed")

const (
	defaultTTL       = 30 * time.Minute
	defaultViewLimit = 8
)

// Ref is a registered blob reference.
type Ref struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

type blob struct {
	data    []byte
	mime    string
	scope   string
	expires time.Time
}

// Registry holds transient references in memory.
type Registry struct {
	mu     sync.Mutex
	ttl       time.Duration
	viewLimit int
	prefix    string
	now       func() time.Time
	seq       uint64

	blobs  map[string]*blob
	scopes map[string]*Scope
	views  map[string]string

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRegistry starts a registry whose references expire after ttl. URLs are
// prefix + token.
func NewRegistry(ttl time.Duration, prefix string) *Registry {
	r := newRegistry(ttl, prefix, time.Now)
	go r.janitor(sweepInterval(r.ttl))
	return r
}

func newRegistry(ttl time.Duration, prefix string, now func() time.Time) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{
		ttl:       ttl,
		viewLimit: defaultViewLimit,
		prefix:    prefix,
		now:       now,
		blobs:     make(map[string]*blob),
		scopes:    make(map[string]*Scope),
		views:     make(map[string]string),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// SetViewLimit caps the live scopes one owner may hold. Non-positive values
// restore the default.
func (r *Registry) SetViewLimit(n int) {
	if n <= 0 {
		n = defaultViewLimit
	}
	r.mu.Lock()
	r.viewLimit = n
	r.mu.Unlock()
}

// Acquire opens a new scope for viewKey and revokes the scope it supersedes.
// When the owner already holds the maximum number of views, the oldest are
// revoked.
func (r *Registry) Acquire(viewKey string) *Scope {
	s := &Scope{id: uuid.NewString(), viewKey: viewKey, owner: ownerOf(viewKey), reg: r, opened: r.now()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.views[viewKey]; ok {
		r.revokeLocked(prev)
	}
	r.evictOldestLocked(s.owner)
	r.seq++
	s.seq = r.seq
	r.scopes[s.id] = s
	r.views[viewKey] = s.id
	return s
}

// Release revokes the current scope for viewKey. It reports whether a scope existed.
func (r *Registry) Release(viewKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.views[viewKey]
	if !ok {
		return false
	}
	r.revokeLocked(id)
	return true
}

// Resolve returns the blob behind token if it is live.
func (r *Registry) Resolve(token string) ([]byte, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[token]
	if !ok {
		return nil, "", false
	}
	if !r.now().Before(b.expires) {
		delete(r.blobs, token)
		return nil, "", false
	}
	return b.data, b.mime, true
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}

// Close stops the janitor and drops every reference.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		r.mu.Lock()
		r.blobs = make(map[string]*blob)
		r.scopes = make(map[string]*Scope)
		r.views = make(map[string]string)
		r.mu.Unlock()
	})
}

func (r *Registry) janitor(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep drops expired references and scopes left with none.
func (r *Registry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	live := make(map[string]struct{})
	for token, b := range r.blobs {
		if !now.Before(b.expires) {
			delete(r.blobs, token)
			removed++
			continue
		}
		live[b.scope] = struct{}{}
	}
	for id, s := range r.scopes {
		if _, ok := live[id]; ok {
			continue
		}
		if now.Sub(s.opened) >= r.ttl {
			r.revokeLocked(id)
		}
	}
	return removed
}

// evictOldestLocked leaves room for one more scope owned by owner.
func (r *Registry) evictOldestLocked(owner string) {
	var owned []*Scope
	for _, sc := range r.scopes {
		if sc.owner == owner {
			owned = append(owned, sc)
		}
	}
	over := len(owned) - r.viewLimit + 1
	if over <= 0 {
		return
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq < owned[j].seq })
	for _, sc := range owned[:over] {
		r.revokeLocked(sc.id)
	}
}

func ownerOf(viewKey string) string {
	owner, _, _ := strings.Cut(viewKey, "|")
	return owner
}

func (r *Registry) revokeLocked(scopeID string) {
	s, ok := r.scopes[scopeID]
	if !ok {
		return
	}
	for _, token := range s.tokens {
		delete(r.blobs, token)
	}
	s.tokens = nil
	s.closed = true
	delete(r.scopes, scopeID)
	if r.views[s.viewKey] == scopeID {
		delete(r.views, s.viewKey)
	}
}

// Scope groups the references created for one view load.
type Scope struct {
	id      string
	viewKey string
	owner   string
	seq     uint64
	reg     *Registry
	opened  time.Time
	tokens  []string
	closed  bool
}

// ID returns the scope identifier.
func (s *Scope) ID() string {
	return s.id
}

// Register stores data and returns its reference.
func (s *Scope) Register(data []byte, mime string) (Ref, error) {
	r := s.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.closed {
		return Ref{}, ErrScopeClosed
	}
	token := uuid.NewString()
	r.blobs[token] = &blob{data: data, mime: mime, scope: s.id, expires: r.now().Add(r.ttl)}
	s.tokens = append(s.tokens, token)
	return Ref{Token: token, URL: r.prefix + token, MimeType: mime}, nil
}

// Close revokes every reference in the scope.
func (s *Scope) Close() {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	s.reg.revokeLocked(s.id)
	s.closed = true
}
