// Package session holds per-visitor state: the authenticated flag and the
// staging buffers. A session starts unauthenticated with empty buffers and
// its buffers are cleared when it ends.
package session

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/staging"

	"github.com/google/uuid"
)

const CookieName = "budget_session"

type Session struct {
	ID           string
	CreatedAt    time.Time
	Transactions *staging.Buffer[core.Transaction]
	Bills        *staging.Buffer[core.Bill]

	mu            sync.RWMutex
	authenticated bool
	username      string
	ended         bool
}

func newSession() *Session {
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now(),
		Transactions: staging.New[core.Transaction](),
		Bills:        staging.New[core.Bill](),
	}
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated && !s.ended
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Ended reports whether the session has been torn down.
func (s *Session) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.authenticated = false
	s.ended = true
	s.mu.Unlock()
	s.Transactions.Clear()
	s.Bills.Clear()
}

// Manager keeps sessions in memory behind a cookie.
type Manager struct {
	store  *cache.LRUCache[*Session]
	ttl    time.Duration
	secure bool
}

// Options configures a Manager.
type Options struct {
	TTL         time.Duration // idle lifetime, extended on each request
	MaxSessions int
	Secure      bool // set the Secure cookie attribute
}

func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	m := &Manager{ttl: opts.TTL, secure: opts.Secure}
	m.store = cache.NewLRUCache[*Session](opts.MaxSessions, opts.TTL,
		cache.WithSlidingTTL[*Session](),
		cache.WithOnEvict(func(id string, s *Session) {
			s.teardown()
			slog.Debug("Session ended", "session_id", id)
		}),
	)
	return m
}

// Store exposes the session cache so a cache.Manager can sweep it.
func (m *Manager) Store() cache.Cleaner { return m.store }

// Len returns the number of live sessions.
func (m *Manager) Len() int { return m.store.Size() }

// Get returns the session named by r's cookie, if it is still live.
func (m *Manager) Get(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return m.store.Get(c.Value)
}

// Load returns r's session, starting a fresh one when there is none.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Session {
	if s, ok := m.Get(r); ok {
		return s
	}
	return m.start(w)
}

func (m *Manager) start(w http.ResponseWriter) *Session {
	s := newSession()
	m.store.Set(s.ID, s)
	m.setCookie(w, s.ID, m.ttl)
	return s
}

// Login replaces r's session with a new authenticated one for username.
// The session ID changes so an ID issued before login cannot be reused.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, username string) *Session {
	if old, ok := m.Get(r); ok {
		m.store.Delete(old.ID)
	}
	s := newSession()
	s.authenticated = true
	s.username = username
	m.store.Set(s.ID, s)
	m.setCookie(w, s.ID, m.ttl)
	return s
}

// Touch re-issues sess's cookie so its lifetime follows the sliding
// server-side TTL.
func (m *Manager) Touch(w http.ResponseWriter, sess *Session) {
	m.setCookie(w, sess.ID, m.ttl)
}

// Destroy ends r's session, clearing its buffers, and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if s, ok := m.Get(r); ok {
		m.store.Delete(s.ID)
	}
	m.setCookie(w, "", -1)
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	http.SetCookie(w, c)
}
