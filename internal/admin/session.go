// ABOUTME: Per-browser sessions owning the screen controllers of the admin UI.
// ABOUTME: A session is the navigator and notifier its screens report to; idle ones are swept.

package admin

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/2389/basiclist/internal/metrics"
	"github.com/2389/basiclist/internal/screen"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "basiclist_session"

const (
	// maxHistory bounds the back stack of a session.
	maxHistory = 32
	// homePath is where Back goes when the history is exhausted.
	homePath = "/admin"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

// Session holds one browser's screens. It implements screen.Navigator and
// screen.Notifier, so screen effects land here as redirects and flashes.
type Session struct {
	ID string

	deps screen.Deps

	mu       sync.Mutex
	lists    map[string]*screen.ListScreen
	page     *screen.PageScreen
	history  []string
	current  string
	redirect string
	fresh    string
	flashes  []Flash
	lastSeen time.Time
}

func newSession(id string, deps screen.Deps, now time.Time) *Session {
	s := &Session{ID: id, lists: map[string]*screen.ListScreen{}, lastSeen: now}
	deps.Nav = s
	deps.Notify = s
	deps.Logger = deps.Logger.With(zap.String("session", id))
	s.deps = deps
	return s
}

// List returns the session's screen for the resource path, creating it on
// first use.
func (s *Session) List(path string) *screen.ListScreen {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[path]
	if !ok {
		l = screen.NewListScreen(path, s.deps)
		s.lists[path] = l
	}
	return l
}

// Page returns the session's form page screen.
func (s *Session) Page() *screen.PageScreen {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		s.page = screen.NewPageScreen(s.deps)
	}
	return s.page
}

// Push records a navigation to an API route such as /api/admins/7.
func (s *Session) Push(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = UIPath(route)
}

// Back returns to the most recent page other than the current one.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.history) > 0 {
		last := s.history[len(s.history)-1]
		if last != s.current {
			s.redirect = last
			return
		}
		s.history = s.history[:len(s.history)-1]
	}
	s.redirect = homePath
}

// Success queues a success notice.
func (s *Session) Success(msg string) {
	s.flash("success", msg)
}

// Error queues an error notice.
func (s *Session) Error(msg string) {
	s.flash("error", msg)
}

func (s *Session) flash(kind, msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: msg})
}

// begin marks the page a request acts on and clears any stale redirect.
func (s *Session) begin(current string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	s.redirect = ""
	s.lastSeen = now
}

// visit records a successfully rendered page on the back stack.
func (s *Session) visit(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.history); n > 0 && s.history[n-1] == path {
		return
	}
	s.history = append(s.history, path)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// takeRedirect returns the navigation requested during the request, or def.
func (s *Session) takeRedirect(def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.redirect
	s.redirect = ""
	if target == "" {
		return def
	}
	return target
}

// markFresh notes that the list at path was read during this request, so the
// view that follows the redirect need not read it again.
func (s *Session) markFresh(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fresh = path
}

// takeFresh reports and clears the mark set by markFresh.
func (s *Session) takeFresh(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := s.fresh == path
	s.fresh = ""
	return fresh
}

// closePage drops whatever the form page had loaded, unsaved input included.
func (s *Session) closePage() {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	if page != nil {
		page.Close()
	}
}

// takeFlashes drains the queued notices.
func (s *Session) takeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// close tears down every screen of the session.
func (s *Session) close() {
	s.mu.Lock()
	lists := make([]*screen.ListScreen, 0, len(s.lists))
	for _, l := range s.lists {
		lists = append(lists, l)
	}
	page := s.page
	s.lists = map[string]*screen.ListScreen{}
	s.page = nil
	s.mu.Unlock()

	for _, l := range lists {
		l.Close()
	}
	if page != nil {
		page.Close()
	}
}

// UIPath maps an API route onto the admin UI. /api/admins/7 becomes
// /basic-list/api/admins/7; anything else is returned as is.
func UIPath(route string) string {
	if strings.HasPrefix(route, "/api/") {
		return basePath + route
	}
	return route
}

// Sessions tracks live sessions by cookie.
type Sessions struct {
	deps    screen.Deps
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions builds a session table whose screens share deps.
func NewSessions(deps screen.Deps, ttl time.Duration) *Sessions {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Sessions{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		log:      deps.Logger.Named("sessions"),
		metrics:  deps.Metrics,
		sessions: map[string]*Session{},
	}
}

// Get returns the request's session, starting a new one and setting the
// cookie when the request has none or its session expired.
func (ss *Sessions) Get(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		ss.mu.Lock()
		s, ok := ss.sessions[c.Value]
		ss.mu.Unlock()
		if ok {
			return s
		}
	}

	id := uuid.NewString()
	s := newSession(id, ss.deps, ss.now())
	ss.mu.Lock()
	ss.sessions[id] = s
	n := len(ss.sessions)
	ss.mu.Unlock()
	ss.metrics.SetActiveSessions(n)
	ss.log.Debug("session started", zap.String("session", id))

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Len reports the number of live sessions.
func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Sweep closes sessions idle for longer than the TTL and reports how many went.
func (ss *Sessions) Sweep() int {
	if ss.ttl <= 0 {
		return 0
	}
	now := ss.now()
	var expired []*Session
	ss.mu.Lock()
	for id, s := range ss.sessions {
		if s.idleSince(now) > ss.ttl {
			expired = append(expired, s)
			delete(ss.sessions, id)
		}
	}
	n := len(ss.sessions)
	ss.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		ss.metrics.SetActiveSessions(n)
		ss.log.Info("swept idle sessions", zap.Int("expired", len(expired)), zap.Int("active", n))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (ss *Sessions) Run(ctx context.Context) {
	if ss.ttl <= 0 {
		return
	}
	interval := ss.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ss.Sweep()
		}
	}
}
