// ABOUTME: Tests for UI sessions: navigation history, notices and idle expiry.
// ABOUTME: Uses a fixed clock so sweeping is deterministic.

package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2389/basiclist/internal/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDeps() screen.Deps {
	return screen.Deps{API: newFakeAPI(), Location: time.UTC, Logger: zap.NewNop()}
}

func TestUIPath(t *testing.T) {
	assert.Equal(t, "/basic-list/api/admins/7", UIPath("/api/admins/7"))
	assert.Equal(t, "/basic-list/api/admins?trash=onlyTrashed", UIPath("/api/admins?trash=onlyTrashed"))
	assert.Equal(t, "/admin", UIPath("/admin"))
}

func TestSessionPush(t *testing.T) {
	s := newSession("s", testDeps(), time.Now())
	s.begin("/basic-list/admins", time.Now())
	s.Push("/api/admins/3")
	assert.Equal(t, "/basic-list/api/admins/3", s.takeRedirect("/basic-list/admins"))
	assert.Equal(t, "/basic-list/admins", s.takeRedirect("/basic-list/admins"), "redirect is one-shot")
}

func TestSessionBack(t *testing.T) {
	now := time.Now()
	s := newSession("s", testDeps(), now)

	s.visit("/basic-list/admins")
	s.visit("/basic-list/admins")
	s.visit("/basic-list/api/admins/3")
	s.begin("/basic-list/api/admins/3", now)
	s.Back()
	assert.Equal(t, "/basic-list/admins", s.takeRedirect(""))

	s.begin("/basic-list/admins", now)
	s.Back()
	assert.Equal(t, homePath, s.takeRedirect(""), "empty history goes home")
}

func TestSessionHistoryIsBounded(t *testing.T) {
	s := newSession("s", testDeps(), time.Now())
	for i := 0; i < maxHistory+10; i++ {
		s.visit("/page/" + string(rune('a'+i%26)) + string(rune('0'+i/26)))
	}
	assert.Len(t, s.history, maxHistory)
}

func TestSessionFlashes(t *testing.T) {
	s := newSession("s", testDeps(), time.Now())
	s.Success("Saved.")
	s.Error("")
	s.Error("Nope.")
	assert.Equal(t, []Flash{{Kind: "success", Message: "Saved."}, {Kind: "error", Message: "Nope."}}, s.takeFlashes())
	assert.Empty(t, s.takeFlashes())
}

func TestSessionFresh(t *testing.T) {
	s := newSession("s", testDeps(), time.Now())
	s.markFresh("/basic-list/admins")
	assert.False(t, s.takeFresh("/basic-list/logs"))
	assert.False(t, s.takeFresh("/basic-list/admins"), "any take clears the mark")
	s.markFresh("/basic-list/admins")
	assert.True(t, s.takeFresh("/basic-list/admins"))
}

func TestSessionsGetReusesCookie(t *testing.T) {
	ss := NewSessions(testDeps(), time.Hour)

	rec := httptest.NewRecorder()
	first := ss.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, first.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	again := ss.Get(rec, req)
	assert.Same(t, first, again)
	assert.Empty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "gone"})
	other := ss.Get(httptest.NewRecorder(), req)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, ss.Len())
}

func TestSessionsSweep(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ss := NewSessions(testDeps(), 30*time.Minute)
	ss.now = func() time.Time { return now }

	idle := ss.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	busy := ss.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	idle.List("/api/admins")

	now = now.Add(20 * time.Minute)
	busy.begin("/admin", now)
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, ss.Sweep())
	assert.Equal(t, 1, ss.Len())
	assert.Empty(t, idle.lists, "swept sessions drop their screens")
}

func TestSessionsSweepDisabled(t *testing.T) {
	ss := NewSessions(testDeps(), 0)
	ss.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 0, ss.Sweep())
	assert.Equal(t, 1, ss.Len())
}
